package port

import "github.com/ryanle444/HealthCoach/internal/core/domain"

// SessionState is the explicit handle onto one browser session's login
// conversation. Implementations must make Establish atomic with respect to
// concurrent readers of the same session: an identity is either fully visible
// or not at all.
type SessionState interface {
	// Attempt returns the in-flight login attempt, if any.
	Attempt() (domain.LoginAttempt, bool)
	// SetAttempt replaces the in-flight attempt. Last write wins.
	SetAttempt(attempt domain.LoginAttempt)
	// ClearAttempt discards the in-flight attempt.
	ClearAttempt()
	// Identity returns the established session identity, if any.
	Identity() (domain.AuthenticatedSession, bool)
	// Establish atomically replaces the session identity and discards any
	// in-flight attempt.
	Establish(identity domain.AuthenticatedSession)
	// Reset clears both identity and attempt (sign-out).
	Reset()
}
