package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
)

// TaskStore defines the interface for task persistence and the time-window
// queries the reminder engine runs against it.
type TaskStore interface {
	// Create saves a new task.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves every mutable field of an existing task, including
	// ReminderSent, so a reschedule that re-armed the reminder persists.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// FindDueSoon returns tasks on date whose time lies in [from, to) that
	// have not been reminded and are not completed. to may be EndOfDay.
	FindDueSoon(ctx context.Context, date domain.Date, from, to domain.TimeOfDay) ([]*domain.Task, error)

	// FindOverdue returns PENDING tasks on date whose time is before before.
	// Unless includeReminded is set, tasks that already received a due
	// reminder are excluded.
	FindOverdue(
		ctx context.Context,
		date domain.Date,
		before domain.TimeOfDay,
		includeReminded bool,
	) ([]*domain.Task, error)

	// CountByStatus counts a user's tasks on date with the given status.
	CountByStatus(ctx context.Context, userID uuid.UUID, date domain.Date, status domain.TaskStatus) (int, error)

	// MarkReminderSent sets the reminder flag on a task.
	// Returns ErrTaskNotFound if the task does not exist.
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}
