package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/repository"
)

type stubCreatingStore struct {
	stubCredentialStore
	created   []domain.User
	createErr error
}

func (s *stubCreatingStore) Create(_ context.Context, user domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, user)
	return nil
}

func TestRegisterCreatesAccount(t *testing.T) {
	store := &stubCreatingStore{}
	events := &capturedEvents{}
	svc := NewRegistrationService(store, nil, events, zap.NewNop())

	user, err := svc.Register(context.Background(), RegisterInput{
		Username:  "pfine",
		Email:     "penelope@example.org",
		Password:  "gravel-orbit-lantern-9",
		FirstName: "Penelope",
		LastName:  "Fine",
		TwoFactor: true,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("no user id assigned")
	}
	if user.PasswordEncoding != "" {
		t.Fatalf("password encoding returned to caller")
	}

	if len(store.created) != 1 {
		t.Fatalf("expected one created record, got %d", len(store.created))
	}
	stored := store.created[0]
	if stored.PasswordEncoding == "" || strings.Contains(stored.PasswordEncoding, "gravel-orbit-lantern-9") {
		t.Fatalf("stored encoding %q is not a hash", stored.PasswordEncoding)
	}
	ok, err := security.VerifyPassword("gravel-orbit-lantern-9", stored.PasswordEncoding)
	if err != nil || !ok {
		t.Fatalf("stored encoding does not verify original password: ok=%v err=%v", ok, err)
	}
	if !stored.TwoFactorEnabled {
		t.Fatalf("two-factor preference dropped")
	}

	if len(events.registered) != 1 || events.registered[0].UserID != user.ID {
		t.Fatalf("expected one registered event for %s, got %+v", user.ID, events.registered)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	store := &stubCreatingStore{}
	svc := NewRegistrationService(store, nil, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "pfine",
		Email:    "penelope@example.org",
		Password: "password1",
	})
	var policyErr *security.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected a password policy error, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("weak password reached the store")
	}
}

func TestRegisterRejectsPasswordDerivedFromIdentity(t *testing.T) {
	svc := NewRegistrationService(&stubCreatingStore{}, nil, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:  "penelopefine",
		Email:     "penelope@example.org",
		Password:  "penelopefine2026",
		FirstName: "Penelope",
		LastName:  "Fine",
	})
	var policyErr *security.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected a password policy error, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc := NewRegistrationService(&stubCreatingStore{}, nil, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{Username: "pfine"})
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
}

func TestRegisterConflict(t *testing.T) {
	store := &stubCreatingStore{createErr: repository.ErrConflict}
	svc := NewRegistrationService(store, nil, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "pfine",
		Email:    "penelope@example.org",
		Password: "gravel-orbit-lantern-9",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}
