package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/campusauth/campusauth/internal/auth"
	"github.com/campusauth/campusauth/internal/cache"
	"github.com/campusauth/campusauth/internal/config"
	"github.com/campusauth/campusauth/internal/http/handlers"
	"github.com/campusauth/campusauth/internal/http/middlewares"
	"github.com/campusauth/campusauth/internal/observability"
	"github.com/campusauth/campusauth/internal/repo/postgres"
	"github.com/campusauth/campusauth/internal/security"
	"github.com/campusauth/campusauth/internal/service"
)

const maxBodyBytes = 1 << 20 // 1MB is plenty for credential payloads

func NewRouter(
	log *slog.Logger,
	pool *pgxpool.Pool,
	limiterStore middlewares.CounterStore,
	cfg config.Config,
	prom *observability.Prom,
	promReg *prometheus.Registry,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("campusauth"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if promReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	// wire the credential pipeline
	usersRepo := postgres.NewUsersRepo(pool, prom)
	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL())
	userCache := cache.New(30 * time.Second)

	authService := service.NewAuth(usersRepo, hasher, tokens, userCache, log)
	authHandler := handlers.NewAuthHandler(authService, log)

	limiter := middlewares.NewRateLimiter(
		limiterStore,
		cfg.AuthRateLimit,
		time.Duration(cfg.AuthRateWindowSec)*time.Second,
	)

	authGroup := r.Group("/auth")
	authGroup.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	guard := middlewares.NewAuthMiddleware(tokens, log)
	r.GET("/me", guard.RequireAuth(), authHandler.Me)

	return r
}
