package port

import (
	"context"
	"time"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
)

// CredentialStore exposes the user lookups the login flow depends on. The
// orchestrator only reads records; account creation goes through Create.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
