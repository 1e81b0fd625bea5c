// Package mail delivers one-time login codes. The service itself never
// speaks SMTP: delivery means handing a challenge event to the message bus,
// where the notification pipeline renders and sends the actual email.
package mail

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
)

// CodeSender generates a numeric one-time code and publishes it for the
// downstream mailer. The generated code is returned to the caller, which
// stores it for later comparison.
type CodeSender struct {
	events     port.EventPublisher
	logger     *zap.Logger
	codeLength int
	codeTTL    time.Duration
}

// NewCodeSender constructs a CodeSender. codeLength falls back to six
// digits when not positive; codeTTL annotates the published event so the
// rendered email can state how long the code stays valid.
func NewCodeSender(events port.EventPublisher, codeLength int, codeTTL time.Duration, log *zap.Logger) *CodeSender {
	if codeLength <= 0 {
		codeLength = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CodeSender{events: events, logger: log, codeLength: codeLength, codeTTL: codeTTL}
}

// SendOneTimeCode generates a fresh code and publishes the challenge event
// for delivery to the given address.
func (s *CodeSender) SendOneTimeCode(ctx context.Context, destination string) (string, error) {
	code, err := security.GenerateNumericCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}

	issuedAt := time.Now().UTC()
	event := domain.ChallengeIssuedEvent{
		Destination: destination,
		Code:        code,
		IssuedAt:    issuedAt,
	}
	if s.codeTTL > 0 {
		event.ExpiresAt = issuedAt.Add(s.codeTTL)
	}
	if err := s.events.PublishChallengeIssued(ctx, event); err != nil {
		return "", fmt.Errorf("publish challenge for delivery: %w", err)
	}

	s.logger.Debug("one-time code handed to delivery pipeline",
		zap.String("destination", logger.MaskEmail(destination)),
	)

	return code, nil
}

// LogSender writes the code to the log instead of delivering it. For local
// development only.
type LogSender struct {
	logger     *zap.Logger
	codeLength int
}

// NewLogSender constructs a LogSender.
func NewLogSender(codeLength int, log *zap.Logger) *LogSender {
	if codeLength <= 0 {
		codeLength = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log, codeLength: codeLength}
}

// SendOneTimeCode generates a code and logs it in plain text.
func (s *LogSender) SendOneTimeCode(_ context.Context, destination string) (string, error) {
	code, err := security.GenerateNumericCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}

	s.logger.Info("one-time code (development sender)",
		zap.String("destination", destination),
		zap.String("code", code),
	)

	return code, nil
}
