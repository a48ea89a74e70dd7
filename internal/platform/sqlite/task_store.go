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

const taskColumns = `id, user_id, title, description, task_date, task_time,
	priority, status, reminder_sent, created_at, updated_at`

type taskRow struct {
	ID           uuid.UUID        `db:"id"`
	UserID       uuid.UUID        `db:"user_id"`
	Title        string           `db:"title"`
	Description  string           `db:"description"`
	Date         domain.Date      `db:"task_date"`
	Time         domain.TimeOfDay `db:"task_time"`
	Priority     int              `db:"priority"`
	Status       string           `db:"status"`
	ReminderSent bool             `db:"reminder_sent"`
	CreatedAt    time.Time        `db:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"`
}

func newTaskRow(t *domain.Task) taskRow {
	return taskRow{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Description:  t.Description,
		Date:         t.Date,
		Time:         t.Time,
		Priority:     int(t.Priority),
		Status:       string(t.Status),
		ReminderSent: t.ReminderSent,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func (r taskRow) toDomain() *domain.Task {
	return &domain.Task{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Description:  r.Description,
		Date:         r.Date,
		Time:         r.Time,
		Priority:     domain.Priority(r.Priority),
		Status:       domain.TaskStatus(r.Status),
		ReminderSent: r.ReminderSent,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// TaskStore implements store.TaskStore on SQLite.
type TaskStore struct {
	db     sqlx.ExtContext
	logger *slog.Logger
}

// NewTaskStore creates a TaskStore. If logger is nil, a default logger will be used.
func NewTaskStore(db sqlx.ExtContext, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{db: db, logger: logger.With(slog.String("component", "task_store"))}
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :user_id, :title, :description, :task_date, :task_time,
			:priority, :status, :reminder_sent, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.db, query, newTaskRow(task)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, s.db, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// Update implements store.TaskStore.Update
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = :title, description = :description, task_date = :task_date,
			task_time = :task_time, priority = :priority, status = :status,
			reminder_sent = :reminder_sent, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := sqlx.NamedExecContext(ctx, s.db, query, newTaskRow(task))
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// FindDueSoon implements store.TaskStore.FindDueSoon
func (s *TaskStore) FindDueSoon(
	ctx context.Context,
	date domain.Date,
	from, to domain.TimeOfDay,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE task_date = ?
			AND task_time >= ?
			AND task_time < ?
			AND reminder_sent = 0
			AND status <> 'COMPLETED'
		ORDER BY task_time, id
	`
	return s.selectTasks(ctx, "find_due_soon", query, date, from, to)
}

// FindOverdue implements store.TaskStore.FindOverdue
func (s *TaskStore) FindOverdue(
	ctx context.Context,
	date domain.Date,
	before domain.TimeOfDay,
	includeReminded bool,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE task_date = ?
			AND task_time < ?
			AND status = 'PENDING'
			AND (? OR reminder_sent = 0)
		ORDER BY task_time, id
	`
	return s.selectTasks(ctx, "find_overdue", query, date, before, includeReminded)
}

// CountByStatus implements store.TaskStore.CountByStatus
func (s *TaskStore) CountByStatus(
	ctx context.Context,
	userID uuid.UUID,
	date domain.Date,
	status domain.TaskStatus,
) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.db, &count,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND task_date = ? AND status = ?`,
		userID, date, string(status))
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// MarkReminderSent implements store.TaskStore.MarkReminderSent
func (s *TaskStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

func (s *TaskStore) selectTasks(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	var rows []taskRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query tasks",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tasks := make([]*domain.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
	}
	return tasks, nil
}
