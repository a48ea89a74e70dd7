package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()
	log, buf := logger.NewTestLogger()
	ctx := logger.WithLogger(SetTraceID(context.Background()), log)
	return httptest.NewRequest(http.MethodGet, "/api/notifications", nil).WithContext(ctx), buf
}

func TestRespondWithJSON(t *testing.T) {
	req, _ := newRequest(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]int{"unreadCount": 3})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"unreadCount":3}`, w.Body.String())
}

func TestRespondWithJSON_EncodingError(t *testing.T) {
	req, logs := newRequest(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.True(t, logs.HasMessage("failed to encode JSON response"))
}

func TestRespondWithMessage(t *testing.T) {
	req, _ := newRequest(t)
	w := httptest.NewRecorder()

	RespondWithMessage(w, req, "Notification deleted")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Notification deleted"}`, w.Body.String())
}

func TestRespondWithError(t *testing.T) {
	req, _ := newRequest(t)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Notification not found")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Notification not found", body.Error)
	assert.Equal(t, GetTraceID(req.Context()), body.TraceID)

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	RespondWithError(w, bare, http.StatusBadRequest, "bad")
	assert.JSONEq(t, `{"error":"bad"}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLevel: slog.LevelError.String()},
		{name: "rate limited", status: http.StatusTooManyRequests, wantLevel: slog.LevelWarn.String()},
		{name: "client error", status: http.StatusNotFound, wantLevel: slog.LevelDebug.String()},
		{
			name:      "elevated client error",
			status:    http.StatusUnauthorized,
			opts:      []ResponseOption{WithElevatedLogLevel()},
			wantLevel: slog.LevelWarn.String(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, logs := newRequest(t)
			w := httptest.NewRecorder()
			cause := errors.New("dial postgres://nudge:hunter2@db:5432/nudge failed")

			RespondWithErrorAndLog(w, req, tc.status, "Something went wrong", cause, tc.opts...)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "hunter2")
			assert.NotContains(t, w.Body.String(), "postgres")

			entries := logs.Entries()
			require.NotEmpty(t, entries)
			last := entries[len(entries)-1]
			assert.Equal(t, "API error response", last["msg"])
			assert.Equal(t, tc.wantLevel, last["level"])
			assert.NotContains(t, last["error"], "hunter2")
		})
	}
}
