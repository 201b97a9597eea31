package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusauth/campusauth/internal/domain/user"
	"github.com/campusauth/campusauth/internal/observability"
)

// DB is the slice of pgxpool.Pool the repo needs. pgxmock satisfies it too,
// which is what the unit tests run against.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UsersRepo struct {
	db   DB
	prom *observability.Prom
}

func NewUsersRepo(db DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		db:   db,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.BeginTx(ctx, pgx.TxOptions{})
}

const userColumns = `id, full_name, email, password_hash, phone_number, region, position, created_at, updated_at`

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.PhoneNumber,
		&u.Region,
		&u.Position,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		return scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+`
             FROM users
             WHERE email = $1`,
			email,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		return scanUser(r.db.QueryRow(ctx,
			`SELECT `+userColumns+`
             FROM users
             WHERE id = $1`,
			id,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// GetByEmailForUpdateTx locks the matching row for the rest of tx. Two
// concurrent registrations for the same email serialize here: the second
// blocks until the first commits, then sees its row (or its unique-index
// violation).
func (r *UsersRepo) GetByEmailForUpdateTx(ctx context.Context, tx pgx.Tx, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email_for_update", func() error {
		return scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+`
             FROM users
             WHERE email = $1
             FOR UPDATE`,
			email,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// CreateTx inserts a user inside tx. The unique index on email is the
// authoritative duplicate guard; the FOR UPDATE pre-check is only an early
// exit.
func (r *UsersRepo) CreateTx(ctx context.Context, tx pgx.Tx, params user.CreateParams) (u user.User, err error) {
	u.FullName = params.FullName
	u.Email = params.Email
	u.PasswordHash = params.PasswordHash
	u.PhoneNumber = params.PhoneNumber
	u.Region = params.Region
	u.Position = params.Position

	err = r.observe("users.create_tx", func() error {
		return tx.QueryRow(ctx, `
		INSERT INTO users (full_name, email, password_hash, phone_number, region, position)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at
	`, params.FullName, params.Email, params.PasswordHash, params.PhoneNumber, params.Region, params.Position).
			Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_email_uniq" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}
