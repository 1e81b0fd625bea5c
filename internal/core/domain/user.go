package domain

import "time"

// User mirrors the persisted representation in the users table. The login
// subsystem only ever reads these records; mutation happens through the
// account-creation flow or external tooling.
type User struct {
	ID               string
	Username         string
	Email            string
	FirstName        string
	LastName         string
	PasswordEncoding string
	TwoFactorEnabled bool
	CreatedAt        time.Time
	LastLogin        *time.Time
}

// DisplayName assembles the human-readable name shown after sign-in.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
