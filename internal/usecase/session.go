package usecase

import (
	"time"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/core/port"
)

// SessionInitializer turns a fully authenticated user into the identity a
// session carries. The username recorded is the one the caller typed at the
// login form, which may differ in case from the stored one.
type SessionInitializer struct{}

// Establish writes the authenticated identity into the session state,
// clearing any pending challenge atomically. Credential material never
// crosses into the session.
func (SessionInitializer) Establish(state port.SessionState, user domain.User, attemptUsername string, at time.Time) domain.AuthenticatedSession {
	sanitized := user
	sanitized.PasswordEncoding = ""

	identity := domain.AuthenticatedSession{
		User:       sanitized,
		UserID:     user.ID,
		Username:   attemptUsername,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		SignedInAt: at,
	}
	state.Establish(identity)
	return identity
}
