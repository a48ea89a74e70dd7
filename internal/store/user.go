package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
)

// UserStore defines the read access the reminder engine needs to users.
// Account management lives outside this service; Create exists for seeding
// and tests.
type UserStore interface {
	// Create saves a new user to the store.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ListAll returns every user ordered by creation time.
	// Returns an empty slice if there are none.
	ListAll(ctx context.Context) ([]*domain.User, error)
}
