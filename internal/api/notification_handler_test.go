package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/api/shared"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/mocks"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/phrazzld/nudge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withUser authenticates every request as userID, standing in for the auth
// middleware.
func withUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != uuid.Nil {
				r = r.WithContext(shared.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func notificationRouter(userID uuid.UUID, svc service.NotificationService) http.Handler {
	h := NewNotificationHandler(svc, nil)
	r := chi.NewRouter()
	r.Use(withUser(userID))
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/unread", h.ListUnread)
		r.Get("/latest", h.ListLatest)
		r.Get("/count", h.UnreadCount)
		r.Patch("/read-all", h.MarkAllRead)
		r.Patch("/{id}/read", h.MarkRead)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestNotificationHandler_List(t *testing.T) {
	userID := uuid.New()
	ref := uuid.New()
	created := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	n := &domain.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "⏰ Time for: Write report",
		Message:     "Go!",
		Type:        domain.NotificationTaskReminder,
		ReferenceID: &ref,
		CreatedAt:   created,
	}

	var filters []string
	svc := &mocks.MockNotificationService{
		ListNotificationsFn: func(_ context.Context, id uuid.UUID, filter string) ([]*domain.Notification, error) {
			assert.Equal(t, userID, id)
			filters = append(filters, filter)
			return []*domain.Notification{n}, nil
		},
	}
	router := notificationRouter(userID, svc)

	rr := do(t, router, http.MethodGet, "/api/notifications?filter=unread")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{
		"id": %q,
		"title": "⏰ Time for: Write report",
		"message": "Go!",
		"type": "TASK_REMINDER",
		"referenceId": %q,
		"isRead": false,
		"createdAt": "2024-05-14T09:00:00Z"
	}]`, n.ID, ref), rr.Body.String())

	do(t, router, http.MethodGet, "/api/notifications")
	do(t, router, http.MethodGet, "/api/notifications/unread")
	do(t, router, http.MethodGet, "/api/notifications/latest")
	assert.Equal(t, []string{"unread", "", service.FilterUnread, service.FilterLatest}, filters)
}

func TestNotificationHandler_ListEmptyIsArray(t *testing.T) {
	router := notificationRouter(uuid.New(), &mocks.MockNotificationService{})

	rr := do(t, router, http.MethodGet, "/api/notifications")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestNotificationHandler_ListInvalidFilter(t *testing.T) {
	svc := &mocks.MockNotificationService{
		ListNotificationsFn: func(context.Context, uuid.UUID, string) ([]*domain.Notification, error) {
			return nil, fmt.Errorf("%w: %q", service.ErrInvalidFilter, "bogus")
		},
	}
	rr := do(t, notificationRouter(uuid.New(), svc), http.MethodGet, "/api/notifications?filter=bogus")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid filter", decodeError(t, rr))
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	svc := &mocks.MockNotificationService{
		GetUnreadCountFn: func(context.Context, uuid.UUID) (int, error) { return 7, nil },
	}
	rr := do(t, notificationRouter(uuid.New(), svc), http.MethodGet, "/api/notifications/count")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"unreadCount":7}`, rr.Body.String())
}

func TestNotificationHandler_MarkAllRead(t *testing.T) {
	svc := &mocks.MockNotificationService{
		MarkAllReadFn: func(context.Context, uuid.UUID) (int64, error) { return 4, nil },
	}
	rr := do(t, notificationRouter(uuid.New(), svc), http.MethodPatch, "/api/notifications/read-all")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"All notifications marked as read","updated":4}`, rr.Body.String())
}

func TestNotificationHandler_MarkReadAndDelete(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "success", wantStatus: http.StatusOK},
		{
			name:       "not found",
			err:        fmt.Errorf("%w: %w", service.ErrNotFound, store.ErrNotificationNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   "Notification not found",
		},
		{
			name:       "owned by someone else",
			err:        service.ErrUnauthorized,
			wantStatus: http.StatusForbidden,
			wantBody:   "You do not own this notification",
		},
		{
			name:       "store failure",
			err:        errors.New("database is locked"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls []uuid.UUID
			svc := &mocks.MockNotificationService{
				MarkReadFn: func(_ context.Context, u, n uuid.UUID) error {
					assert.Equal(t, userID, u)
					calls = append(calls, n)
					return tc.err
				},
				DeleteNotificationFn: func(_ context.Context, u, n uuid.UUID) error {
					assert.Equal(t, userID, u)
					calls = append(calls, n)
					return tc.err
				},
			}
			router := notificationRouter(userID, svc)

			for _, req := range []struct{ method, target string }{
				{http.MethodPatch, "/api/notifications/" + id.String() + "/read"},
				{http.MethodDelete, "/api/notifications/" + id.String()},
			} {
				rr := do(t, router, req.method, req.target)
				assert.Equal(t, tc.wantStatus, rr.Code, req.method)
				if tc.wantBody != "" {
					assert.Equal(t, tc.wantBody, decodeError(t, rr))
					assert.NotContains(t, rr.Body.String(), "database")
				}
			}
			assert.Equal(t, []uuid.UUID{id, id}, calls)
		})
	}
}

func TestNotificationHandler_InvalidPathID(t *testing.T) {
	router := notificationRouter(uuid.New(), &mocks.MockNotificationService{})

	rr := do(t, router, http.MethodPatch, "/api/notifications/not-a-uuid/read")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid ID", decodeError(t, rr))
}

func TestNotificationHandler_RequiresUser(t *testing.T) {
	router := notificationRouter(uuid.Nil, &mocks.MockNotificationService{})

	for _, target := range []string{"/api/notifications", "/api/notifications/count"} {
		rr := do(t, router, http.MethodGet, target)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
	rr := do(t, router, http.MethodDelete, "/api/notifications/"+uuid.NewString())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
