package domain

import "time"

// LoginState enumerates the phases of the two-step login conversation.
type LoginState string

const (
	// LoginStateAnonymous is the resting state: no credentials submitted.
	LoginStateAnonymous LoginState = "anonymous"
	// LoginStateAwaitingTwoFactor means credentials were accepted and an
	// emailed one-time code must still be confirmed.
	LoginStateAwaitingTwoFactor LoginState = "awaiting_two_factor"
	// LoginStateAuthenticated means the session identity has been established.
	LoginStateAuthenticated LoginState = "authenticated"
)

// LoginAttempt is the transient per-session conversation state carried between
// the credential step and the code-confirmation step. It never outlives the
// session; a process restart abandons all in-flight attempts.
type LoginAttempt struct {
	Username    string
	PendingCode string
	IssuedAt    time.Time
	Failures    int
}

// Expired reports whether the pending challenge has outlived its TTL. A zero
// ttl disables expiry.
func (a LoginAttempt) Expired(at time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return at.After(a.IssuedAt.Add(ttl))
}

// AuthenticatedSession holds the identity attributes written once on success.
// Username preserves the value exactly as the user submitted it, which may
// differ in casing from the stored record.
type AuthenticatedSession struct {
	User       User
	UserID     string
	Username   string
	FirstName  string
	LastName   string
	SignedInAt time.Time
}

// NextView identifies where the UI layer should take the user after a
// successful login step.
type NextView string

const (
	// NextViewProfile is returned when the session is fully established.
	NextViewProfile NextView = "profile"
	// NextViewConfirm is returned when a one-time code must be entered.
	NextViewConfirm NextView = "confirm"
)
