package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/store"
)

const notificationColumns = `id, user_id, title, message, type, reference_id, is_read, created_at`

type notificationRow struct {
	ID          uuid.UUID     `db:"id"`
	UserID      uuid.UUID     `db:"user_id"`
	Title       string        `db:"title"`
	Message     string        `db:"message"`
	Type        string        `db:"type"`
	ReferenceID uuid.NullUUID `db:"reference_id"`
	IsRead      bool          `db:"is_read"`
	CreatedAt   time.Time     `db:"created_at"`
}

func newNotificationRow(n *domain.Notification) notificationRow {
	row := notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC(),
	}
	if n.ReferenceID != nil {
		row.ReferenceID = uuid.NullUUID{UUID: *n.ReferenceID, Valid: true}
	}
	return row
}

func (r notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      domain.NotificationType(r.Type),
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ReferenceID.Valid {
		n.ReferenceID = domain.RefID(r.ReferenceID.UUID)
	}
	return n
}

// NotificationStore implements store.NotificationStore on SQLite.
type NotificationStore struct {
	db     sqlx.ExtContext
	conn   *sqlx.DB
	logger *slog.Logger
}

// NewNotificationStore creates a NotificationStore. If logger is nil, a
// default logger will be used.
func NewNotificationStore(db *sqlx.DB, logger *slog.Logger) *NotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// WithTx implements store.NotificationStore.WithTx
func (s *NotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &NotificationStore{
		db:     &sqlx.Tx{Tx: tx, Mapper: s.conn.Mapper},
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB implements store.NotificationStore.DB
func (s *NotificationStore) DB() *sql.DB {
	return s.conn.DB
}

// Create implements store.NotificationStore.Create
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :title, :message, :type, :reference_id, :is_read, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.db, query, newNotificationRow(n)); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrNotificationExists, err)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()))
		return MapError(err)
	}
	return nil
}

// Exists implements store.NotificationStore.Exists
func (s *NotificationStore) Exists(
	ctx context.Context,
	userID, referenceID uuid.UUID,
	t domain.NotificationType,
) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.db, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = ? AND reference_id = ? AND type = ?
		)`, userID, referenceID, string(t))
	if err != nil {
		return false, fmt.Errorf("notification exists: %w", err)
	}
	return exists, nil
}

// GetByID implements store.NotificationStore.GetByID
func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(ctx, s.db, &row, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// ListAll implements store.NotificationStore.ListAll
func (s *NotificationStore) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.selectNotifications(ctx, "list_all", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
}

// ListUnread implements store.NotificationStore.ListUnread
func (s *NotificationStore) ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.selectNotifications(ctx, "list_unread", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC, id DESC`, userID)
}

// ListLatest implements store.NotificationStore.ListLatest
func (s *NotificationStore) ListLatest(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = store.DefaultLatestLimit
	}
	return s.selectNotifications(ctx, "list_latest", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
}

// ListByType implements store.NotificationStore.ListByType
func (s *NotificationStore) ListByType(
	ctx context.Context,
	userID uuid.UUID,
	t domain.NotificationType,
) ([]*domain.Notification, error) {
	return s.selectNotifications(ctx, "list_by_type", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND type = ?
		ORDER BY created_at DESC, id DESC`, userID, string(t))
}

// CountUnread implements store.NotificationStore.CountUnread
func (s *NotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.db, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return checkRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.execCount(ctx, "mark_all_read",
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
}

// Delete implements store.NotificationStore.Delete
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return checkRowsAffected(result, store.ErrNotificationNotFound)
}

// PurgeReadOlderThan implements store.NotificationStore.PurgeReadOlderThan
func (s *NotificationStore) PurgeReadOlderThan(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	return s.execCount(ctx, "purge_read",
		`DELETE FROM notifications WHERE user_id = ? AND is_read = 1 AND created_at < ?`,
		userID, cutoff.UTC())
}

func (s *NotificationStore) execCount(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("notification update failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get rows affected: %w", op, err)
	}
	return n, nil
}

func (s *NotificationStore) selectNotifications(
	ctx context.Context,
	op, query string,
	args ...any,
) ([]*domain.Notification, error) {
	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query notifications",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifications := make([]*domain.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.toDomain())
	}
	return notifications, nil
}
