package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/repository"
)

var (
	// ErrUnknownUser indicates the submitted username matches no account.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidCredentials indicates the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVerifierUnavailable indicates password verification could not run to
	// completion, for example because the stored encoding is malformed.
	ErrVerifierUnavailable = errors.New("password verifier unavailable")
	// ErrInvalidCode indicates the entered one-time code did not match the
	// pending challenge.
	ErrInvalidCode = errors.New("invalid confirmation code")
	// ErrNoChallengePending indicates code confirmation was attempted while
	// no challenge was outstanding for the session.
	ErrNoChallengePending = errors.New("no challenge pending")
	// ErrChallengeExpired indicates the pending challenge outlived its TTL
	// and was discarded; the user must log in again.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrTooManyCodeAttempts indicates the pending challenge was discarded
	// after too many wrong codes.
	ErrTooManyCodeAttempts = errors.New("too many code attempts")
	// ErrDeliveryFailed indicates the one-time code could not be sent.
	ErrDeliveryFailed = errors.New("code delivery failed")
)

// LoginResult reports where the caller should navigate after a successful
// step of the login flow.
type LoginResult struct {
	Next     domain.NextView
	Identity *domain.AuthenticatedSession
}

// LoginService drives the two-step login flow: password verification first,
// then an emailed one-time code for accounts with two-factor enabled.
type LoginService struct {
	store       port.CredentialStore
	challenges  *ChallengeManager
	initializer SessionInitializer
	events      port.EventPublisher
	logger      *zap.Logger

	now          func() time.Time
	challengeTTL time.Duration
	maxAttempts  int
}

// LoginOption customizes a LoginService.
type LoginOption func(*LoginService)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) LoginOption {
	return func(s *LoginService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithChallengeTTL sets how long an issued code stays confirmable. Zero
// disables expiry.
func WithChallengeTTL(ttl time.Duration) LoginOption {
	return func(s *LoginService) { s.challengeTTL = ttl }
}

// WithMaxCodeAttempts caps wrong-code entries per challenge. Zero disables
// the cap.
func WithMaxCodeAttempts(n int) LoginOption {
	return func(s *LoginService) { s.maxAttempts = n }
}

// NewLoginService constructs a LoginService.
func NewLoginService(store port.CredentialStore, challenges *ChallengeManager, events port.EventPublisher, log *zap.Logger, opts ...LoginOption) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	svc := &LoginService{
		store:        store,
		challenges:   challenges,
		events:       events,
		logger:       log,
		now:          time.Now,
		challengeTTL: 10 * time.Minute,
		maxAttempts:  5,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// InitiateLogin verifies the submitted credentials. For two-factor accounts
// it issues an emailed code and parks the session in the awaiting state;
// otherwise it establishes the authenticated session directly.
func (s *LoginService) InitiateLogin(ctx context.Context, state port.SessionState, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publishFailure(ctx, username, "unknown_user")
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordEncoding)
	if err != nil {
		s.logger.Error("password verification failed to run",
			zap.String("username", username),
			zap.Error(err),
		)
		s.publishFailure(ctx, username, "verifier_unavailable")
		return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}
	if !ok {
		state.ClearAttempt()
		s.publishFailure(ctx, username, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.TwoFactorEnabled {
		identity := s.establish(ctx, state, *user, username)
		return &LoginResult{Next: domain.NextViewProfile, Identity: &identity}, nil
	}

	issuedAt := s.now()
	code, err := s.challenges.IssueChallenge(ctx, user.Email)
	if err != nil {
		s.logger.Error("challenge delivery failed",
			zap.String("username", username),
			zap.String("destination", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	state.SetAttempt(domain.LoginAttempt{
		Username:    username,
		PendingCode: code,
		IssuedAt:    issuedAt,
	})

	return &LoginResult{Next: domain.NextViewConfirm}, nil
}

// ConfirmCode completes a pending two-factor challenge. A wrong code leaves
// the pending challenge in place apart from its failure count; the stored
// code is never rotated by a mismatch.
func (s *LoginService) ConfirmCode(ctx context.Context, state port.SessionState, entered string) (*LoginResult, error) {
	attempt, ok := state.Attempt()
	if !ok {
		return nil, ErrNoChallengePending
	}

	if attempt.Expired(s.now(), s.challengeTTL) {
		state.ClearAttempt()
		s.publishFailure(ctx, attempt.Username, "challenge_expired")
		return nil, ErrChallengeExpired
	}

	if !s.challenges.VerifyChallenge(entered, attempt.PendingCode) {
		attempt.Failures++
		if s.maxAttempts > 0 && attempt.Failures >= s.maxAttempts {
			state.ClearAttempt()
			s.publishFailure(ctx, attempt.Username, "too_many_code_attempts")
			return nil, ErrTooManyCodeAttempts
		}
		state.SetAttempt(attempt)
		s.publishFailure(ctx, attempt.Username, "invalid_code")
		return nil, ErrInvalidCode
	}

	user, err := s.store.FindByUsername(ctx, attempt.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			state.ClearAttempt()
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("resolve user for confirmed code: %w", err)
	}

	identity := s.establish(ctx, state, *user, attempt.Username)
	return &LoginResult{Next: domain.NextViewProfile, Identity: &identity}, nil
}

// SignOut discards all login state for the session.
func (s *LoginService) SignOut(state port.SessionState) {
	state.Reset()
}

func (s *LoginService) establish(ctx context.Context, state port.SessionState, user domain.User, attemptUsername string) domain.AuthenticatedSession {
	at := s.now()
	identity := s.initializer.Establish(state, user, attemptUsername, at)

	if err := s.store.RecordLogin(ctx, user.ID, at); err != nil {
		s.logger.Warn("record last login failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	if s.events != nil {
		event := domain.LoginSucceededEvent{
			UserID:     user.ID,
			Username:   attemptUsername,
			TwoFactor:  user.TwoFactorEnabled,
			SignedInAt: at,
		}
		if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
			s.logger.Warn("publish login succeeded event failed", zap.Error(err))
		}
	}

	s.logger.Info("login completed",
		zap.String("user_id", user.ID),
		zap.Bool("two_factor", user.TwoFactorEnabled),
	)

	return identity
}

func (s *LoginService) publishFailure(ctx context.Context, username, reason string) {
	if s.events == nil {
		return
	}
	event := domain.LoginFailedEvent{
		Username: username,
		Reason:   reason,
		FailedAt: s.now(),
	}
	if err := s.events.PublishLoginFailed(ctx, event); err != nil {
		s.logger.Warn("publish login failed event failed", zap.Error(err))
	}
}
