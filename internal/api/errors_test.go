package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/nudge/internal/api/shared"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/schedule"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/phrazzld/nudge/internal/service/auth"
	"github.com/phrazzld/nudge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"missing user", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"foreign notification", service.ErrUnauthorized, http.StatusForbidden},
		{"service not found", fmt.Errorf("mark read: %w", service.ErrNotFound), http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"unknown job", schedule.ErrUnknownJob, http.StatusNotFound},
		{"job running", schedule.ErrJobRunning, http.StatusConflict},
		{"already notified", service.ErrAlreadyNotified, http.StatusConflict},
		{"invalid filter", service.ErrInvalidFilter, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage_NeverLeaksDetails(t *testing.T) {
	secret := errors.New(`pq: password authentication failed for user "nudge" at postgres://nudge:hunter2@db/nudge`)

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(secret))
	assert.Equal(t, "Notification not found",
		GetSafeErrorMessage(fmt.Errorf("%w: %w", service.ErrNotFound, secret)))
}

func TestSanitizeValidationError(t *testing.T) {
	err := validator.New().Struct(ListNotificationsQuery{Filter: string(make([]byte, 65))})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	assert.Equal(t, "Invalid filter: too long", SanitizeValidationError(verrs))
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))
	assert.Equal(t, "Validation error", SanitizeValidationError(nil))
}

func TestHandleAPIError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = req.WithContext(shared.SetTraceID(req.Context()))
	rr := httptest.NewRecorder()

	HandleAPIError(rr, req, service.ErrUnauthorized, "")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "You do not own this notification")
	assert.Contains(t, rr.Body.String(), shared.GetTraceID(req.Context()))

	rr = httptest.NewRecorder()
	HandleAPIError(rr, req, errors.New("boom"), "Failed to list notifications")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Failed to list notifications")
}
