package domain

import "time"

// UserRegisteredEvent is published when the sign-up flow creates an account.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	TwoFactor    bool
	RegisteredAt time.Time
	Metadata     map[string]any
}

// ChallengeIssuedEvent is published when a one-time code is handed to the
// downstream mailer. The code itself travels in the payload; the mailer is
// responsible for rendering and SMTP delivery.
type ChallengeIssuedEvent struct {
	EventID     string
	Destination string
	Code        string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// LoginSucceededEvent is published once a session identity is established.
type LoginSucceededEvent struct {
	EventID    string
	UserID     string
	Username   string
	TwoFactor  bool
	SignedInAt time.Time
	IPAddress  *string
	Metadata   map[string]any
}

// LoginFailedEvent is published for credential or code rejections. Reason is
// the internal error kind; it never reaches the end user.
type LoginFailedEvent struct {
	EventID   string
	Username  string
	Reason    string
	FailedAt  time.Time
	IPAddress *string
	Metadata  map[string]any
}
