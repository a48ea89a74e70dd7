package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/service"
)

// MockNotificationService implements service.NotificationService for testing.
// By default CreateAndDeliver builds the notification in memory and records
// it in Created; every other method returns zero values.
type MockNotificationService struct {
	ListNotificationsFn  func(ctx context.Context, userID uuid.UUID, filter string) ([]*domain.Notification, error)
	GetUnreadCountFn     func(ctx context.Context, userID uuid.UUID) (int, error)
	MarkReadFn           func(ctx context.Context, userID, id uuid.UUID) error
	MarkAllReadFn        func(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotificationFn func(ctx context.Context, userID, id uuid.UUID) error
	CreateAndDeliverFn   func(
		ctx context.Context,
		user *domain.User,
		title, message string,
		notificationType domain.NotificationType,
		referenceID *uuid.UUID,
	) (*domain.Notification, error)
	PurgeOldFn    func(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	HasBeenSentFn func(
		ctx context.Context,
		userID, referenceID uuid.UUID,
		notificationType domain.NotificationType,
	) (bool, error)

	mu sync.Mutex

	// Created records every notification built by the default CreateAndDeliver.
	Created []*domain.Notification
}

var _ service.NotificationService = (*MockNotificationService)(nil)

// ListNotifications implements the NotificationService interface
func (m *MockNotificationService) ListNotifications(
	ctx context.Context,
	userID uuid.UUID,
	filter string,
) ([]*domain.Notification, error) {
	if m.ListNotificationsFn != nil {
		return m.ListNotificationsFn(ctx, userID, filter)
	}
	return []*domain.Notification{}, nil
}

// GetUnreadCount implements the NotificationService interface
func (m *MockNotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.GetUnreadCountFn != nil {
		return m.GetUnreadCountFn(ctx, userID)
	}
	return 0, nil
}

// MarkRead implements the NotificationService interface
func (m *MockNotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, userID, id)
	}
	return nil
}

// MarkAllRead implements the NotificationService interface
func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.MarkAllReadFn != nil {
		return m.MarkAllReadFn(ctx, userID)
	}
	return 0, nil
}

// DeleteNotification implements the NotificationService interface
func (m *MockNotificationService) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	if m.DeleteNotificationFn != nil {
		return m.DeleteNotificationFn(ctx, userID, id)
	}
	return nil
}

// CreateAndDeliver implements the NotificationService interface
func (m *MockNotificationService) CreateAndDeliver(
	ctx context.Context,
	user *domain.User,
	title, message string,
	notificationType domain.NotificationType,
	referenceID *uuid.UUID,
) (*domain.Notification, error) {
	if m.CreateAndDeliverFn != nil {
		return m.CreateAndDeliverFn(ctx, user, title, message, notificationType, referenceID)
	}

	n, err := domain.NewNotification(user.ID, title, message, notificationType, referenceID, time.Now())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Created = append(m.Created, n)
	m.mu.Unlock()
	return n, nil
}

// PurgeOld implements the NotificationService interface
func (m *MockNotificationService) PurgeOld(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	if m.PurgeOldFn != nil {
		return m.PurgeOldFn(ctx, userID, cutoff)
	}
	return 0, nil
}

// HasBeenSent implements the NotificationService interface
func (m *MockNotificationService) HasBeenSent(
	ctx context.Context,
	userID, referenceID uuid.UUID,
	notificationType domain.NotificationType,
) (bool, error) {
	if m.HasBeenSentFn != nil {
		return m.HasBeenSentFn(ctx, userID, referenceID, notificationType)
	}
	return false, nil
}

// CreatedNotifications returns a copy of the notifications recorded so far.
func (m *MockNotificationService) CreatedNotifications() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, len(m.Created))
	copy(out, m.Created)
	return out
}
