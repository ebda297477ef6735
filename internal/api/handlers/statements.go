package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/networth-labs/tracker/internal/api/middleware"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/jobs"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/store"
)

// maxUploadBytes bounds multipart statement uploads.
const maxUploadBytes = 32 << 20

// StatementsHandler handles statement upload endpoints.
type StatementsHandler struct {
	uploads   store.UploadStore
	files     filestore.Store
	publisher jobs.Publisher
}

// NewStatementsHandler creates a statements handler.
func NewStatementsHandler(uploads store.UploadStore, files filestore.Store, publisher jobs.Publisher) *StatementsHandler {
	return &StatementsHandler{uploads: uploads, files: files, publisher: publisher}
}

// Upload handles POST /api/statements: store the file, create a PENDING
// upload record and enqueue processing.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	uploadType, ok := domain.ParseUploadType(r.FormValue("upload_type"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown upload_type")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ref, err := h.files.Save(ctx, header.Filename, file)
	if err != nil {
		log.Error().Err(err).Str("file_name", header.Filename).Msg("Failed to store statement file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	up := &domain.StatementUpload{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   header.Filename,
		FileRef:    ref,
		UploadType: uploadType,
		Status:     domain.StatusPending,
		UploadedAt: time.Now(),
	}
	if err := h.uploads.CreateUpload(ctx, up); err != nil {
		log.Error().Err(err).Msg("Failed to create upload record")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create upload")
		return
	}

	job := &jobs.ProcessStatementJob{UploadID: up.ID, UserID: userID}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		// The record stays PENDING; a worker poll or reprocess call picks
		// it up later.
		log.Error().Err(err).Str("upload_id", up.ID).Msg("Failed to enqueue processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	log.Info().
		Str("upload_id", up.ID).
		Str("job_id", job.JobID).
		Str("file_name", up.FileName).
		Msg("Statement uploaded")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"upload_id": up.ID,
		"job_id":    job.JobID,
		"status":    string(up.Status),
	})
}

// List handles GET /api/statements with optional status, limit and offset
// query parameters.
func (h *StatementsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := store.UploadFilter{
		UserID: userID,
		Limit:  intQuery(query, "limit"),
		Offset: intQuery(query, "offset"),
	}
	if s := query.Get("status"); s != "" {
		status, ok := domain.ParseUploadStatus(s)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		filter.Status = status
	}

	uploads, err := h.uploads.ListUploads(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statements": uploads,
		"count":      len(uploads),
	})
}

// Get handles GET /api/statements/{id}.
func (h *StatementsHandler) Get(w http.ResponseWriter, r *http.Request, uploadID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	up, ok := h.loadOwned(w, r, uploadID, userID)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, up)
}

// Reprocess handles POST /api/statements/{id}/reprocess. Only PENDING and
// FAILED statements can be re-enqueued; anything else is already done or
// in flight.
func (h *StatementsHandler) Reprocess(w http.ResponseWriter, r *http.Request, uploadID string) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	up, ok := h.loadOwned(w, r, uploadID, userID)
	if !ok {
		return
	}

	if up.Status != domain.StatusPending && up.Status != domain.StatusFailed {
		middleware.WriteError(w, http.StatusConflict, "Only PENDING or FAILED statements can be reprocessed")
		return
	}

	job := &jobs.ProcessStatementJob{UploadID: up.ID, UserID: userID}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		log.Error().Err(err).Str("upload_id", up.ID).Msg("Failed to enqueue reprocessing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	log.Info().Str("upload_id", up.ID).Str("job_id", job.JobID).Msg("Statement reprocessing enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"upload_id": up.ID,
		"job_id":    job.JobID,
	})
}

// Review handles POST /api/statements/{id}/review, flagging a completed
// statement as human-verified.
func (h *StatementsHandler) Review(w http.ResponseWriter, r *http.Request, uploadID string) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	up, ok := h.loadOwned(w, r, uploadID, userID)
	if !ok {
		return
	}

	if err := up.MarkReviewed(); err != nil {
		middleware.WriteError(w, http.StatusConflict, "Only COMPLETED statements can be reviewed")
		return
	}
	if err := h.uploads.UpdateUpload(ctx, up); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("upload_id", up.ID).Msg("Failed to persist review")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update statement")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, up)
}

// loadOwned fetches an upload and hides other users' records behind 404.
func (h *StatementsHandler) loadOwned(w http.ResponseWriter, r *http.Request, uploadID, userID string) (*domain.StatementUpload, bool) {
	up, err := h.uploads.GetUpload(r.Context(), uploadID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return nil, false
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("upload_id", uploadID).Msg("Failed to load statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load statement")
		return nil, false
	}
	if up.UserID != userID {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return nil, false
	}
	return up, true
}
