package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusauth/campusauth/internal/cache"
	"github.com/campusauth/campusauth/internal/domain/user"
	"github.com/campusauth/campusauth/internal/security"
	"github.com/campusauth/campusauth/internal/validation"
)

// Fake collaborators in the style of the handler tests: function fields,
// zero-value methods are no-ops.

type fakeStore struct {
	beginFn        func(ctx context.Context) (pgx.Tx, error)
	getByEmailFn   func(ctx context.Context, email string) (user.User, error)
	getByIDFn      func(ctx context.Context, id int64) (user.User, error)
	getForUpdateFn func(ctx context.Context, tx pgx.Tx, email string) (user.User, error)
	createFn       func(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error)
}

func (f *fakeStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.beginFn != nil {
		return f.beginFn(ctx)
	}
	return nil, errors.New("unexpected BeginTx")
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) GetByEmailForUpdateTx(ctx context.Context, tx pgx.Tx, email string) (user.User, error) {
	if f.getForUpdateFn != nil {
		return f.getForUpdateFn(ctx, tx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) CreateTx(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, tx, params)
	}
	return user.User{}, errors.New("unexpected CreateTx")
}

type fakeIssuer struct {
	issueFn func(userID int64, email string, position user.Position) (string, error)
}

func (f *fakeIssuer) Issue(userID int64, email string, position user.Position) (string, error) {
	if f.issueFn != nil {
		return f.issueFn(userID, email, position)
	}
	return "token", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() *security.Hasher {
	return security.NewHasher(bcrypt.MinCost)
}

// mockTx hands out a pgx.Tx whose commit/rollback the test can assert on.
func mockTx(t *testing.T) (pgxmock.PgxPoolIface, pgx.Tx) {
	t.Helper()

	mock, err := pgxmock.NewPool()

	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}

	t.Cleanup(mock.Close)

	mock.ExpectBegin()

	tx, err := mock.Begin(context.Background())

	if err != nil {
		t.Fatalf("begin mock tx: %v", err)
	}

	return mock, tx
}

func registerInput() validation.RegisterInput {
	return validation.RegisterInput{
		FullName:        "Jane Doe",
		Email:           "JANE@EX.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		PhoneNumber:     "+15551234567",
		Position:        "etudiant",
	}
}

func TestRegisterSuccess(t *testing.T) {
	mock, tx := mockTx(t)
	mock.ExpectCommit()

	hasher := testHasher()

	var gotParams user.CreateParams

	store := &fakeStore{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, email string) (user.User, error) {
			if email != "jane@ex.com" {
				t.Errorf("duplicate check used email %q, want normalized jane@ex.com", email)
			}
			return user.User{}, user.ErrNotFound
		},
		createFn: func(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error) {
			gotParams = params
			return user.User{
				ID:           1,
				FullName:     params.FullName,
				Email:        params.Email,
				PasswordHash: params.PasswordHash,
				PhoneNumber:  params.PhoneNumber,
				Position:     params.Position,
				CreatedAt:    time.Now().UTC(),
			}, nil
		},
	}

	svc := NewAuth(store, hasher, &fakeIssuer{}, nil, discardLogger())

	in := registerInput()
	pub, err := svc.Register(context.Background(), &in)

	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if pub.ID != 1 || pub.Email != "jane@ex.com" || pub.Position != user.PositionEtudiant {
		t.Errorf("unexpected projection: %+v", pub)
	}

	// the stored hash is not the plaintext, and verifies against it
	if gotParams.PasswordHash == "secret1" {
		t.Fatal("plaintext password reached the store")
	}

	if !hasher.Verify("secret1", gotParams.PasswordHash) {
		t.Fatal("stored hash does not verify against the password")
	}

	// the projection never leaks the password or its hash
	raw, err := json.Marshal(pub)
	if err != nil {
		t.Fatalf("marshal projection: %v", err)
	}

	if strings.Contains(string(raw), "secret1") || strings.Contains(string(raw), gotParams.PasswordHash) {
		t.Fatalf("projection leaks credentials: %s", raw)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("tx expectations: %v", err)
	}
}

func TestRegisterValidationFailureHasNoSideEffects(t *testing.T) {
	begun := false

	store := &fakeStore{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			begun = true
			return nil, errors.New("must not be called")
		},
	}

	svc := NewAuth(store, testHasher(), &fakeIssuer{}, nil, discardLogger())

	in := registerInput()
	in.ConfirmPassword = "different"

	_, err := svc.Register(context.Background(), &in)

	var verrs validation.Errors

	if !errors.As(err, &verrs) {
		t.Fatalf("want validation.Errors, got %v", err)
	}

	if begun {
		t.Fatal("transaction begun despite validation failure")
	}
}

func TestRegisterDuplicateEmailRollsBack(t *testing.T) {
	mock, tx := mockTx(t)
	mock.ExpectRollback()

	store := &fakeStore{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, email string) (user.User, error) {
			return user.User{ID: 9, Email: email}, nil
		},
	}

	svc := NewAuth(store, testHasher(), &fakeIssuer{}, nil, discardLogger())

	in := registerInput()
	_, err := svc.Register(context.Background(), &in)

	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("tx expectations: %v", err)
	}
}

// The unique index can still fire inside the insert when the locked
// pre-check raced a commit; the conflict error passes through unchanged.
func TestRegisterInsertConflictPassesThrough(t *testing.T) {
	mock, tx := mockTx(t)
	mock.ExpectRollback()

	store := &fakeStore{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
		createFn: func(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error) {
			return user.User{}, user.ErrEmailTaken
		},
	}

	svc := NewAuth(store, testHasher(), &fakeIssuer{}, nil, discardLogger())

	in := registerInput()
	_, err := svc.Register(context.Background(), &in)

	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}

	_ = mock.ExpectationsWereMet()
}

func TestRegisterStorageFailureWrapped(t *testing.T) {
	mock, tx := mockTx(t)
	mock.ExpectRollback()

	store := &fakeStore{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
		createFn: func(ctx context.Context, tx pgx.Tx, params user.CreateParams) (user.User, error) {
			return user.User{}, errors.New("connection reset")
		},
	}

	svc := NewAuth(store, testHasher(), &fakeIssuer{}, nil, discardLogger())

	in := registerInput()
	_, err := svc.Register(context.Background(), &in)

	var serr *StorageError

	if !errors.As(err, &serr) {
		t.Fatalf("want *StorageError, got %v", err)
	}

	if serr.Op != "register.insert" {
		t.Errorf("StorageError.Op = %q, want register.insert", serr.Op)
	}

	_ = mock.ExpectationsWereMet()
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	hasher := testHasher()

	hash, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	known := user.User{ID: 1, Email: "jane@ex.com", PasswordHash: hash, Position: user.PositionEtudiant}

	store := &fakeStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == "jane@ex.com" {
				return known, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	svc := NewAuth(store, hasher, &fakeIssuer{}, nil, discardLogger())

	unknown := validation.LoginInput{Email: "nobody@ex.com", Password: "secret1"}
	_, _, errUnknown := svc.Login(context.Background(), &unknown)

	wrong := validation.LoginInput{Email: "jane@ex.com", Password: "wrong"}
	_, _, errWrong := svc.Login(context.Background(), &wrong)

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", errUnknown)
	}

	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", errWrong)
	}

	// the two failures must be indistinguishable
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("error messages differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	hasher := testHasher()

	hash, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	store := &fakeStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: 42, Email: "jane@ex.com", PasswordHash: hash, Position: user.PositionProf}, nil
		},
	}

	issued := false

	issuer := &fakeIssuer{
		issueFn: func(userID int64, email string, position user.Position) (string, error) {
			issued = true
			if userID != 42 || email != "jane@ex.com" || position != user.PositionProf {
				t.Errorf("token claims = (%d, %q, %q)", userID, email, position)
			}
			return "signed-token", nil
		},
	}

	svc := NewAuth(store, hasher, issuer, nil, discardLogger())

	in := validation.LoginInput{Email: " JANE@EX.com", Password: "secret1"}
	token, pub, err := svc.Login(context.Background(), &in)

	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if !issued || token != "signed-token" {
		t.Fatalf("token not issued: %q", token)
	}

	if pub.ID != 42 {
		t.Errorf("projection id = %d, want 42", pub.ID)
	}
}

func TestMeUsesCache(t *testing.T) {
	calls := 0

	store := &fakeStore{
		getByIDFn: func(ctx context.Context, id int64) (user.User, error) {
			calls++
			return user.User{ID: id, FullName: "Jane Doe", Email: "jane@ex.com", Position: user.PositionEtudiant}, nil
		},
	}

	svc := NewAuth(store, testHasher(), &fakeIssuer{}, cache.New(time.Minute), discardLogger())

	for i := 0; i < 3; i++ {
		pub, err := svc.Me(context.Background(), 1)
		if err != nil {
			t.Fatalf("Me returned error: %v", err)
		}
		if pub.FullName != "Jane Doe" {
			t.Errorf("unexpected projection: %+v", pub)
		}
	}

	if calls != 1 {
		t.Fatalf("store hit %d times, want 1 (cache miss only)", calls)
	}
}
