package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/nudge/internal/api/shared"
	"github.com/phrazzld/nudge/internal/platform/logger"
)

// JobTrigger runs a named job on demand. *schedule.Scheduler implements it.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) error
}

// JobHandler runs reminder jobs out of band.
type JobHandler struct {
	jobs   JobTrigger
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobTrigger, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{jobs: jobs, logger: logger.With("handler", "job")}
}

// Run handles POST /api/jobs/{name}/run. The job runs to completion before
// the response is written.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.jobs.Trigger(r.Context(), name); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("job run on demand", slog.String("job", name))
	shared.RespondWithJSON(w, r, http.StatusOK, JobRunResponse{Job: name, Status: "completed"})
}
