package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/repository"
)

var (
	// ErrUsernameTaken indicates the requested username or email already
	// belongs to an account.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidRegistration indicates required sign-up fields were missing.
	ErrInvalidRegistration = errors.New("invalid registration input")
)

// RegisterInput carries the sign-up form fields.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	TwoFactor bool
}

// RegistrationService creates accounts with hashed credentials.
type RegistrationService struct {
	store  port.CredentialStore
	policy *security.PasswordPolicy
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService constructs a RegistrationService. A nil policy
// falls back to the default one.
func NewRegistrationService(store port.CredentialStore, policy *security.PasswordPolicy, events port.EventPublisher, log *zap.Logger) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == nil {
		policy = security.DefaultPasswordPolicy()
	}
	return &RegistrationService{
		store:  store,
		policy: policy,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// Register validates the input, hashes the password and persists the new
// account. The plaintext password is not retained past this call.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, ErrInvalidRegistration
	}

	if err := s.policy.Validate(input.Password, input.Username, input.Email, input.FirstName, input.LastName); err != nil {
		return nil, err
	}

	encoded, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:               uuid.NewString(),
		Username:         input.Username,
		Email:            input.Email,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		PasswordEncoding: encoded,
		TwoFactorEnabled: input.TwoFactor,
		CreatedAt:        s.now(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			TwoFactor:    user.TwoFactorEnabled,
			RegisteredAt: user.CreatedAt,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event failed", zap.Error(err))
		}
	}

	s.logger.Info("account created",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	user.PasswordEncoding = ""
	return &user, nil
}
