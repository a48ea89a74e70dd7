package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Priority ranks a task. Higher values are more urgent.
type Priority int

// Possible priority values
const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID   = errors.New("task user ID cannot be empty")
	ErrEmptyTaskTitle    = errors.New("task title cannot be empty")
	ErrEmptyTaskDate     = errors.New("task date cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidPriority   = errors.New("invalid task priority")
)

// Task is a user's scheduled to-do item. The reminder engine reads tasks and
// flips ReminderSent; every other mutation belongs to the task owner.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Date         Date       `json:"date"`
	Time         TimeOfDay  `json:"time"`
	Priority     Priority   `json:"priority"`
	Status       TaskStatus `json:"status"`
	ReminderSent bool       `json:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a pending task scheduled at the given date and time.
// Returns an error if validation fails.
func NewTask(userID uuid.UUID, title string, date Date, at TimeOfDay, priority Priority) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Date:      date,
		Time:      at,
		Priority:  priority,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if t.Date.IsZero() {
		return ErrEmptyTaskDate
	}
	if t.Time < 0 || t.Time >= EndOfDay {
		return fmt.Errorf("%w: task time %s", ErrInvalidFormat, t.Time)
	}
	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	if t.Priority < PriorityLow || t.Priority > PriorityHigh {
		return ErrInvalidPriority
	}
	return nil
}

// TransitionTo moves the task to next. Allowed moves are
// PENDING->IN_PROGRESS, PENDING->COMPLETED and IN_PROGRESS->COMPLETED.
// Setting the current status again is a no-op.
func (t *Task) TransitionTo(next TaskStatus) error {
	if !isValidTaskStatus(next) {
		return ErrInvalidTaskStatus
	}
	if next == t.Status {
		return nil
	}

	allowed := false
	switch t.Status {
	case TaskStatusPending:
		allowed = next == TaskStatusInProgress || next == TaskStatusCompleted
	case TaskStatusInProgress:
		allowed = next == TaskStatusCompleted
	}
	if !allowed {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, t.Status, next)
	}

	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Reschedule moves the task to a new date and time. Any change re-arms the
// reminder so the new slot is announced again.
func (t *Task) Reschedule(date Date, at TimeOfDay) {
	if date == t.Date && at == t.Time {
		return
	}
	t.Date = date
	t.Time = at
	t.ReminderSent = false
	t.UpdatedAt = time.Now().UTC()
}

// DueAt returns the instant the task is due in loc.
func (t *Task) DueAt(loc *time.Location) time.Time {
	return t.Time.On(t.Date, loc)
}

// isValidTaskStatus checks if the given status is a valid TaskStatus
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}
