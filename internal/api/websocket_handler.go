package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/redact"
	"github.com/phrazzld/nudge/internal/store"
)

// Subscriber attaches a websocket connection to a delivery address.
// *websocket.Hub implements it.
type Subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, address string) error
}

// WebSocketHandler subscribes an authenticated user to real-time pushes.
type WebSocketHandler struct {
	users  store.UserStore
	hub    Subscriber
	logger *slog.Logger
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(users store.UserStore, hub Subscriber, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{users: users, hub: hub, logger: logger.With("handler", "websocket")}
}

// Subscribe handles GET /ws/notifications.
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	// The upgrader has already answered the request when Serve fails.
	if err := h.hub.Serve(w, r, user.Address()); err != nil {
		log.Warn("websocket subscription failed",
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
		return
	}

	log.Info("websocket subscribed",
		slog.String("user_id", userID.String()),
		slog.String("address", redact.Address(user.Address())))
}
