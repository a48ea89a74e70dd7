package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/store"
)

const notificationColumns = `id, user_id, title, message, type, reference_id, is_read, created_at`

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of the
// NotificationStore interface. If logger is nil, a default logger will be used.
func NewPostgresNotificationStore(db *sql.DB, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// WithTx implements store.NotificationStore.WithTx
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{db: tx, conn: s.conn, logger: s.logger}
}

// DB implements store.NotificationStore.DB
func (s *PostgresNotificationStore) DB() *sql.DB {
	return s.conn
}

// Create implements store.NotificationStore.Create
// Returns store.ErrNotificationExists when the (user, reference, type) key is taken.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		log.Warn("notification validation failed during create",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()))
		return err
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.ReferenceID,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("notification already recorded",
				slog.String("user_id", n.UserID.String()),
				slog.String("type", string(n.Type)))
			return fmt.Errorf("%w: %v", store.ErrNotificationExists, err)
		}
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()))
		return MapError(err)
	}

	log.Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.UserID.String()),
		slog.String("type", string(n.Type)))
	return nil
}

// Exists implements store.NotificationStore.Exists
func (s *PostgresNotificationStore) Exists(
	ctx context.Context,
	userID, referenceID uuid.UUID,
	t domain.NotificationType,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND reference_id = $2 AND type = $3
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, referenceID, t).Scan(&exists); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check notification existence",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("reference_id", referenceID.String()))
		return false, err
	}
	return exists, nil
}

// GetByID implements store.NotificationStore.GetByID
func (s *PostgresNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, err
	}
	return n, nil
}

// ListAll implements store.NotificationStore.ListAll
func (s *PostgresNotificationStore) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return s.queryNotifications(ctx, "list_all", query, userID)
}

// ListUnread implements store.NotificationStore.ListUnread
func (s *PostgresNotificationStore) ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC, id DESC
	`
	return s.queryNotifications(ctx, "list_unread", query, userID)
}

// ListLatest implements store.NotificationStore.ListLatest
func (s *PostgresNotificationStore) ListLatest(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = store.DefaultLatestLimit
	}
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return s.queryNotifications(ctx, "list_latest", query, userID, limit)
}

// ListByType implements store.NotificationStore.ListByType
func (s *PostgresNotificationStore) ListByType(
	ctx context.Context,
	userID uuid.UUID,
	t domain.NotificationType,
) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
	`
	return s.queryNotifications(ctx, "list_by_type", query, userID, t)
}

// CountUnread implements store.NotificationStore.CountUnread
func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count unread notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}
	return count, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark notification read",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return err
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	return s.execCount(ctx, "mark_all_read", query, userID)
}

// Delete implements store.NotificationStore.Delete
func (s *PostgresNotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return err
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// PurgeReadOlderThan implements store.NotificationStore.PurgeReadOlderThan
func (s *PostgresNotificationStore) PurgeReadOlderThan(
	ctx context.Context,
	userID uuid.UUID,
	cutoff time.Time,
) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE user_id = $1 AND is_read = TRUE AND created_at < $2
	`
	return s.execCount(ctx, "purge_read", query, userID, cutoff.UTC())
}

func (s *PostgresNotificationStore) execCount(ctx context.Context, op, query string, args ...any) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("notification update failed", slog.String("op", op), slog.String("error", err.Error()))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get rows affected: %w", op, err)
	}
	return n, nil
}

func (s *PostgresNotificationStore) queryNotifications(
	ctx context.Context,
	op, query string,
	args ...any,
) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query notifications", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	notifications := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return notifications, nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	var ref uuid.NullUUID
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Type,
		&ref,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		n.ReferenceID = domain.RefID(ref.UUID)
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}
