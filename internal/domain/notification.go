package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification by what triggered it.
type NotificationType string

// Possible notification types
const (
	NotificationTaskReminder NotificationType = "TASK_REMINDER"
	NotificationTaskOverdue  NotificationType = "TASK_OVERDUE"
	NotificationMotivational NotificationType = "MOTIVATIONAL"
	NotificationExpenseAlert NotificationType = "EXPENSE_ALERT"
	NotificationSystem       NotificationType = "SYSTEM"
)

// Common validation errors for Notification
var (
	ErrEmptyNotificationID     = errors.New("notification ID cannot be empty")
	ErrEmptyNotificationUserID = errors.New("notification user ID cannot be empty")
	ErrEmptyNotificationTitle  = errors.New("notification title cannot be empty")
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// Notification is a persisted message addressed to one user. At most one
// notification exists per (UserID, ReferenceID, Type) when ReferenceID is set.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	ReferenceID *uuid.UUID       `json:"reference_id,omitempty"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification stamped with createdAt.
// A nil referenceID marks a broadcast such as a daily digest.
func NewNotification(
	userID uuid.UUID,
	title, message string,
	notificationType NotificationType,
	referenceID *uuid.UUID,
	createdAt time.Time,
) (*Notification, error) {
	n := &Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Message:     message,
		Type:        notificationType,
		ReferenceID: referenceID,
		CreatedAt:   createdAt.UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}
	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUserID
	}
	if n.Title == "" {
		return ErrEmptyNotificationTitle
	}
	if !IsValidNotificationType(n.Type) {
		return ErrInvalidNotificationType
	}
	return nil
}

// MarkRead flags the notification as read. There is no way back to unread.
func (n *Notification) MarkRead() {
	n.IsRead = true
}

// IsOwnedBy reports whether the notification belongs to userID.
func (n *Notification) IsOwnedBy(userID uuid.UUID) bool {
	return n.UserID == userID
}

// IsValidNotificationType checks if t is one of the known notification types.
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTaskReminder,
		NotificationTaskOverdue,
		NotificationMotivational,
		NotificationExpenseAlert,
		NotificationSystem:
		return true
	default:
		return false
	}
}

// RefID is a convenience for taking the address of an ID inline.
func RefID(id uuid.UUID) *uuid.UUID {
	return &id
}
