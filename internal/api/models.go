package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
)

// ListNotificationsQuery holds the query parameters of the list endpoint.
type ListNotificationsQuery struct {
	Filter string `validate:"omitempty,max=64"`
}

// NotificationResponse is the API view of a notification.
type NotificationResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	ReferenceID *uuid.UUID `json:"referenceId,omitempty"`
	IsRead      bool       `json:"isRead"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UnreadCountResponse is returned by the count endpoint.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// MarkAllReadResponse is returned by the read-all endpoint.
type MarkAllReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// JobRunResponse is returned after a job was run on demand.
type JobRunResponse struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        string(n.Type),
		ReferenceID: n.ReferenceID,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC(),
	}
}

func toNotificationResponses(list []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	return out
}
