package handlers

import (
	"errors"
	"net/http"

	"github.com/networth-labs/tracker/internal/api/middleware"
	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/jobs"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/rates"
)

// RatesHandler triggers exchange rate refreshes.
type RatesHandler struct {
	service *rates.Service
}

// NewRatesHandler creates a rates handler. A nil service means the
// rate provider was never configured.
func NewRatesHandler(service *rates.Service) *RatesHandler {
	return &RatesHandler{service: service}
}

// Refresh handles POST /api/rates/refresh.
func (h *RatesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.service == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Exchange rates are not configured")
		return
	}

	result, err := h.service.Refresh(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to refresh exchange rates")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to refresh exchange rates")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// RunsHandler exposes recent extraction runs from the archive.
type RunsHandler struct {
	sink archive.Sink
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(sink archive.Sink) *RunsHandler {
	return &RunsHandler{sink: sink}
}

// Recent handles GET /api/runs.
func (h *RunsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := intQuery(r.URL.Query(), "limit")
	if limit == 0 {
		limit = 20
	}

	runs, err := h.sink.RecentRuns(ctx, limit)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list extraction runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list extraction runs")
		return
	}
	if runs == nil {
		runs = []*archive.Run{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// JobsHandler exposes queued processing jobs.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := jobs.Filter{
		UploadID: query.Get("upload_id"),
		Status:   jobs.Status(query.Get("status")),
		Limit:    intQuery(query, "limit"),
		Offset:   intQuery(query, "offset"),
	}

	list, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}
