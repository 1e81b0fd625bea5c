package usecase

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
)

// ChallengeManager issues and verifies emailed one-time codes. Code
// generation and delivery belong to the sender; the manager stores exactly
// what the sender reports so the later comparison uses the canonical value.
type ChallengeManager struct {
	sender port.OneTimeCodeSender
	logger *zap.Logger
}

// NewChallengeManager constructs a ChallengeManager.
func NewChallengeManager(sender port.OneTimeCodeSender, log *zap.Logger) *ChallengeManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChallengeManager{sender: sender, logger: log}
}

// IssueChallenge asks the sender to deliver a one-time code to the address
// and returns the code value actually sent.
func (m *ChallengeManager) IssueChallenge(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("destination email is required")
	}
	if m.sender == nil {
		return "", fmt.Errorf("code sender not configured")
	}

	code, err := m.sender.SendOneTimeCode(ctx, email)
	if err != nil {
		return "", fmt.Errorf("send one-time code: %w", err)
	}
	if code == "" {
		return "", fmt.Errorf("sender returned empty code")
	}

	m.logger.Info("two-factor challenge issued",
		zap.String("destination", logger.MaskEmail(email)),
	)

	return code, nil
}

// VerifyChallenge reports whether the entered code matches the expected one.
// Codes are opaque strings; equality is exact.
func (m *ChallengeManager) VerifyChallenge(entered, expected string) bool {
	if entered == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(entered), []byte(expected)) == 1
}
