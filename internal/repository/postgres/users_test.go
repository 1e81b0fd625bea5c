package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/repository"
)

func newUserRows(createdAt time.Time, lastLogin *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "first_name", "last_name",
		"password_encoding", "two_factor_enabled", "created_at", "last_login",
	}).AddRow(
		"user-1", "malloryq", "mallory@example.org", "Mallory", "Quinn",
		"PBKDF2WithHmacSHA256:64000:24:c2FsdA==:aGFzaA==", true, createdAt, lastLogin,
	)
}

func TestUserRepository_FindByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM healthcoach\.users WHERE LOWER\(username\) = LOWER\(\$1\)`).
		WithArgs("MalloryQ").
		WillReturnRows(newUserRows(createdAt, nil))

	user, err := repo.FindByUsername(context.Background(), "MalloryQ")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if user.Username != "malloryq" {
		t.Fatalf("expected stored username malloryq, got %s", user.Username)
	}
	if user.PasswordEncoding == "" {
		t.Fatalf("password encoding not loaded")
	}
	if !user.TwoFactorEnabled {
		t.Fatalf("two-factor flag not loaded")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByUsernameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM healthcoach\.users`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "first_name", "last_name",
			"password_encoding", "two_factor_enabled", "created_at", "last_login",
		}))

	if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	createdAt := time.Now().UTC()

	user := domain.User{
		ID:               "user-1",
		Username:         "malloryq",
		Email:            "mallory@example.org",
		FirstName:        "Mallory",
		LastName:         "Quinn",
		PasswordEncoding: "PBKDF2WithHmacSHA256:64000:24:c2FsdA==:aGFzaA==",
		TwoFactorEnabled: true,
		CreatedAt:        createdAt,
	}

	mock.ExpectExec(`INSERT INTO healthcoach\.users`).
		WithArgs(
			user.ID,
			user.Username,
			user.Email,
			user.FirstName,
			user.LastName,
			user.PasswordEncoding,
			user.TwoFactorEnabled,
			user.CreatedAt,
			nil,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectExec(`INSERT INTO healthcoach\.users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err = repo.Create(context.Background(), domain.User{ID: "user-1", Username: "malloryq"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserRepository_RecordLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE healthcoach\.users SET last_login`).
		WithArgs(at, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.RecordLogin(context.Background(), "user-1", at); err != nil {
		t.Fatalf("RecordLogin returned error: %v", err)
	}

	mock.ExpectExec(`UPDATE healthcoach\.users SET last_login`).
		WithArgs(at, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.RecordLogin(context.Background(), "ghost", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
