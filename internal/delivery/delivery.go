package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/domain"
)

// Topic is the per-user destination every notification is published to.
const Topic = "/queue/notifications"

// ErrTransientDelivery marks a push that failed at the transport. It is only
// ever logged; callers never see it.
var ErrTransientDelivery = errors.New("transient delivery failure")

// Channel hands a persisted notification to the real-time transport.
// Implementations must not block the caller on network I/O and must not
// return errors.
type Channel interface {
	Push(ctx context.Context, address string, n *domain.Notification)
}

// Transport sends a payload to a single address on a topic.
type Transport interface {
	Send(ctx context.Context, address, topic string, payload Payload) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, address, topic string, payload Payload) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, address, topic string, payload Payload) error {
	return f(ctx, address, topic, payload)
}

// Payload is the wire representation of a notification.
type Payload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	ReferenceID string `json:"referenceId"`
	CreatedAt   string `json:"createdAt"`
	IsRead      bool   `json:"isRead"`
}

// NewPayload builds the wire payload for n. A notification without a
// reference is sent with the zero UUID.
func NewPayload(n *domain.Notification) Payload {
	ref := uuid.Nil
	if n.ReferenceID != nil {
		ref = *n.ReferenceID
	}
	return Payload{
		ID:          n.ID.String(),
		Title:       n.Title,
		Message:     n.Message,
		Type:        string(n.Type),
		ReferenceID: ref.String(),
		CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339),
		IsRead:      n.IsRead,
	}
}

// Noop is the channel used when no transport is configured.
type Noop struct{}

// Push does nothing.
func (Noop) Push(context.Context, string, *domain.Notification) {}

var (
	_ Channel = Noop{}
	_ Channel = (*Dispatcher)(nil)
)
