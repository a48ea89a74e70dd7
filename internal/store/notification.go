package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
)

// DefaultLatestLimit is the page size for the "latest" listing.
const DefaultLatestLimit = 20

// NotificationStore defines the interface for notification persistence.
// Listings are ordered newest first and return an empty slice when nothing
// matches.
type NotificationStore interface {
	// Create saves a new notification.
	// Returns ErrNotificationExists if a notification with the same user,
	// reference and type already exists.
	Create(ctx context.Context, n *domain.Notification) error

	// Exists reports whether a notification for (userID, referenceID, type)
	// has been recorded.
	Exists(ctx context.Context, userID, referenceID uuid.UUID, t domain.NotificationType) (bool, error)

	// GetByID retrieves a notification by its unique ID.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListAll returns all of a user's notifications.
	ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)

	// ListUnread returns a user's unread notifications.
	ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)

	// ListLatest returns at most limit of a user's newest notifications.
	// A non-positive limit means DefaultLatestLimit.
	ListLatest(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// ListByType returns a user's notifications of one type.
	ListByType(ctx context.Context, userID uuid.UUID, t domain.NotificationType) ([]*domain.Notification, error)

	// CountUnread counts a user's unread notifications.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead flags one notification as read.
	// Returns ErrNotificationNotFound if it does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead flags all of a user's unread notifications as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// Delete removes a notification.
	// Returns ErrNotificationNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// PurgeReadOlderThan deletes a user's read notifications created before
	// cutoff and returns how many were removed. Unread ones are kept.
	PurgeReadOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)

	// WithTx returns a NotificationStore that runs on tx.
	WithTx(tx *sql.Tx) NotificationStore

	// DB returns the underlying database connection.
	DB() *sql.DB
}
