package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/nudge/internal/api/shared"
	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/service"
)

// NotificationHandler serves a user's notification inbox.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With("handler", "notification"),
	}
}

func (h *NotificationHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// List handles GET /api/notifications?filter=all|unread|latest|type:<TYPE>.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("filter"))
}

// ListUnread handles GET /api/notifications/unread.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, service.FilterUnread)
}

// ListLatest handles GET /api/notifications/latest.
func (h *NotificationHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, service.FilterLatest)
}

func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request, filter string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := ListNotificationsQuery{Filter: filter}
	if err := shared.ValidateRequest(query); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.notifications.ListNotifications(r.Context(), userID, query.Filter)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toNotificationResponses(list))
}

// UnreadCount handles GET /api/notifications/count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	count, err := h.notifications.GetUnreadCount(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// MarkRead handles PATCH /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.log(r).Debug("notification marked as read",
		slog.String("user_id", userID.String()),
		slog.String("notification_id", id.String()))
	shared.RespondWithMessage(w, r, "Notification marked as read")
}

// MarkAllRead handles PATCH /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MarkAllReadResponse{
		Message: "All notifications marked as read",
		Updated: updated,
	})
}

// Delete handles DELETE /api/notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.DeleteNotification(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.log(r).Info("notification deleted",
		slog.String("user_id", userID.String()),
		slog.String("notification_id", id.String()))
	shared.RespondWithMessage(w, r, "Notification deleted")
}
