package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/campusauth/campusauth/internal/cache"
	"github.com/campusauth/campusauth/internal/domain/user"
	"github.com/campusauth/campusauth/internal/validation"
)

// ErrInvalidCredentials covers both unknown email and password mismatch so
// responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// StorageError wraps transaction and connectivity failures. The boundary
// layer translates it to a generic 500; the wrapped cause goes to the log
// only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure during " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Small interfaces so tests can fake each collaborator.

type UserStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmailForUpdateTx(ctx context.Context, tx pgx.Tx, email string) (user.User, error)
	CreateTx(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(userID int64, email string, position user.Position) (string, error)
}

type Auth struct {
	store     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	validator *validation.CredentialValidator
	users     *cache.Cache // /me projections
	log       *slog.Logger
}

func NewAuth(store UserStore, hasher PasswordHasher, tokens TokenIssuer, userCache *cache.Cache, log *slog.Logger) *Auth {
	return &Auth{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		validator: validation.New(),
		users:     userCache,
		log:       log,
	}
}

// Register runs validate → tx begin → locked duplicate check → hash →
// insert → commit. The duplicate pre-check holds a row lock, so two
// concurrent attempts on one email serialize; the unique index backstops
// anything the pre-check misses.
func (s *Auth) Register(ctx context.Context, in *validation.RegisterInput) (user.Public, error) {
	if verrs := s.validator.ValidateRegister(in); verrs != nil {
		return user.Public{}, verrs
	}

	tx, err := s.store.BeginTx(ctx)

	if err != nil {
		return user.Public{}, storageErr("register.begin", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	_, err = s.store.GetByEmailForUpdateTx(ctx, tx, in.Email)

	if err == nil {
		return user.Public{}, user.ErrEmailTaken
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.Public{}, storageErr("register.duplicate_check", err)
	}

	hash, err := s.hasher.Hash(in.Password)

	if err != nil {
		return user.Public{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateTx(ctx, tx, user.CreateParams{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		Region:       in.Region,
		Position:     user.Position(in.Position),
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.Public{}, err
		}

		return user.Public{}, storageErr("register.insert", err)
	}

	err = tx.Commit(ctx)

	if err != nil {
		return user.Public{}, storageErr("register.commit", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "position", u.Position)

	return u.Public(), nil
}

// Login validates, looks up by normalized email and verifies the password.
// Both miss paths return ErrInvalidCredentials unchanged.
func (s *Auth) Login(ctx context.Context, in *validation.LoginInput) (string, user.Public, error) {
	if verrs := s.validator.ValidateLogin(in); verrs != nil {
		return "", user.Public{}, verrs
	}

	u, err := s.store.GetByEmail(ctx, in.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", user.Public{}, ErrInvalidCredentials
		}

		return "", user.Public{}, storageErr("login.lookup", err)
	}

	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return "", user.Public{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Position)

	if err != nil {
		return "", user.Public{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)

	return token, u.Public(), nil
}

// Me returns the projection for an authenticated user id, cache-fronted.
func (s *Auth) Me(ctx context.Context, id int64) (user.Public, error) {
	key := "user:" + strconv.FormatInt(id, 10)

	if s.users != nil {
		if v, hit := s.users.Get(key); hit {
			if p, isPublic := v.(user.Public); isPublic {
				return p, nil
			}
		}
	}

	u, err := s.store.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Public{}, user.ErrNotFound
		}

		return user.Public{}, storageErr("me.lookup", err)
	}

	p := u.Public()

	if s.users != nil {
		s.users.Set(key, p)
	}

	return p, nil
}
