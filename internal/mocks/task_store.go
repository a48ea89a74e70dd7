package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. Without function
// fields set, the queries return nothing and the mutations succeed.
type MockTaskStore struct {
	CreateFn           func(ctx context.Context, task *domain.Task) error
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn           func(ctx context.Context, task *domain.Task) error
	FindDueSoonFn      func(ctx context.Context, date domain.Date, from, to domain.TimeOfDay) ([]*domain.Task, error)
	FindOverdueFn      func(ctx context.Context, date domain.Date, before domain.TimeOfDay, includeReminded bool) ([]*domain.Task, error)
	CountByStatusFn    func(ctx context.Context, userID uuid.UUID, date domain.Date, status domain.TaskStatus) (int, error)
	MarkReminderSentFn func(ctx context.Context, id uuid.UUID) error

	mu sync.Mutex

	// MarkedIDs records every id passed to MarkReminderSent.
	MarkedIDs []uuid.UUID
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrTaskNotFound
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return nil
}

// FindDueSoon implements the TaskStore interface
func (m *MockTaskStore) FindDueSoon(
	ctx context.Context,
	date domain.Date,
	from, to domain.TimeOfDay,
) ([]*domain.Task, error) {
	if m.FindDueSoonFn != nil {
		return m.FindDueSoonFn(ctx, date, from, to)
	}
	return []*domain.Task{}, nil
}

// FindOverdue implements the TaskStore interface
func (m *MockTaskStore) FindOverdue(
	ctx context.Context,
	date domain.Date,
	before domain.TimeOfDay,
	includeReminded bool,
) ([]*domain.Task, error) {
	if m.FindOverdueFn != nil {
		return m.FindOverdueFn(ctx, date, before, includeReminded)
	}
	return []*domain.Task{}, nil
}

// CountByStatus implements the TaskStore interface
func (m *MockTaskStore) CountByStatus(
	ctx context.Context,
	userID uuid.UUID,
	date domain.Date,
	status domain.TaskStatus,
) (int, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx, userID, date, status)
	}
	return 0, nil
}

// MarkReminderSent implements the TaskStore interface
func (m *MockTaskStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.MarkedIDs = append(m.MarkedIDs, id)
	m.mu.Unlock()

	if m.MarkReminderSentFn != nil {
		return m.MarkReminderSentFn(ctx, id)
	}
	return nil
}
