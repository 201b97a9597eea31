package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusauth/campusauth/internal/config"
	"github.com/campusauth/campusauth/internal/domain/user"
	"github.com/campusauth/campusauth/internal/http/middlewares"
	"github.com/campusauth/campusauth/internal/service"
	"github.com/campusauth/campusauth/internal/validation"
)

// AuthService is what the handlers need from internal/service; tests fake it.
type AuthService interface {
	Register(ctx context.Context, in *validation.RegisterInput) (user.Public, error)
	Login(ctx context.Context, in *validation.LoginInput) (string, user.Public, error)
	Me(ctx context.Context, id int64) (user.Public, error)
}

type AuthHandler struct {
	auth AuthService
	log  *slog.Logger
}

func NewAuthHandler(auth AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req validation.RegisterInput

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	pub, err := h.auth.Register(cctx, &req)

	if err != nil {
		var verrs validation.Errors

		switch {
		case errors.As(err, &verrs):
			RespondValidation(ctx, verrs)

		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "duplicate_email", "Email already registered")

		default:
			h.log.ErrorContext(cctx, "registration failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status":    "success",
		"message":   "Registration successful",
		"alertType": "registration_success",
		"data":      gin.H{"user": pub},
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req validation.LoginInput

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the lookup + bcrypt compare
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	token, pub, err := h.auth.Login(cctx, &req)

	if err != nil {
		var verrs validation.Errors

		switch {
		case errors.As(err, &verrs):
			RespondValidation(ctx, verrs)

		case errors.Is(err, service.ErrInvalidCredentials):
			// identical body for unknown email and wrong password
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")

		default:
			h.log.ErrorContext(cctx, "login failed", "err", err)
			RespondInternal(ctx, "Could not log in")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Login successful",
		"alertType": "login_success",
		"token":     token,
		"user":      pub,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	pub, err := h.auth.Me(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Unknown account")
			return
		}

		h.log.ErrorContext(cctx, "me lookup failed", "err", err)
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": pub})
}
