package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"username":      event.Username,
		"email":         logger.MaskEmail(event.Email),
		"two_factor":    event.TwoFactor,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent(topicUserRegistered, event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishChallengeIssued logs auth.challenge.issued events. The code itself
// is withheld from log output.
func (p *StubPublisher) PublishChallengeIssued(_ context.Context, event domain.ChallengeIssuedEvent) error {
	payload := map[string]any{
		"destination": logger.MaskEmail(event.Destination),
		"issued_at":   event.IssuedAt,
		"expires_at":  event.ExpiresAt,
	}
	p.logEvent(topicChallengeIssued, "", event.IssuedAt, payload)
	return nil
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"username":     event.Username,
		"two_factor":   event.TwoFactor,
		"signed_in_at": event.SignedInAt,
	}
	p.logEvent(topicLoginSucceeded, event.UserID, event.SignedInAt, payload)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"username":  event.Username,
		"reason":    event.Reason,
		"failed_at": event.FailedAt,
	}
	p.logEvent(topicLoginFailed, "", event.FailedAt, payload)
	return nil
}
