package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusauth/campusauth/internal/config"
	"github.com/campusauth/campusauth/internal/domain/user"
	"github.com/campusauth/campusauth/internal/security"
	"github.com/campusauth/campusauth/internal/validation"
)

// EnsureAdminUser seeds an initial staff account when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured. Does nothing if the account exists.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, hasher *security.Hasher) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := validation.NormalizeEmail(cfg.AdminEmail)

	// check if the user exists

	var dummy int64

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (full_name, email, password_hash, position)
		VALUES ($1,$2,$3,$4)
		`,
		cfg.AdminName, email, hash, user.PositionProf,
	)

	return err
}
