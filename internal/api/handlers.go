package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spherical/slide-converter/internal/domain"
	"github.com/spherical/slide-converter/internal/jobstore"
	"github.com/spherical/slide-converter/internal/observability"
	"github.com/spherical/slide-converter/internal/pipeline"
)

// Converter runs one conversion job to completion
type Converter interface {
	Run(ctx context.Context, req domain.ConvertRequest, events chan<- domain.Event) *pipeline.Result
}

// JobReader reads recorded job history
type JobReader interface {
	Get(ctx context.Context, id string) (*jobstore.Record, error)
}

// Handler serves conversion requests
type Handler struct {
	logger    *observability.Logger
	converter Converter
	jobs      JobReader
}

// NewHandler creates a new conversion handler.
func NewHandler(logger *observability.Logger, converter Converter, jobs JobReader) *Handler {
	return &Handler{
		logger:    logger,
		converter: converter,
		jobs:      jobs,
	}
}

// Convert handles POST /convert. It blocks until the job has notified and cleaned up
// and answers with a plain-text message.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req domain.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res := h.converter.Run(r.Context(), req, nil)

	switch {
	case res.Err == nil:
		writeText(w, http.StatusOK, res.Message())
	case domain.IsType(res.Err, domain.ErrorTypeValidation):
		writeText(w, http.StatusBadRequest, res.Err.Error())
	default:
		h.logger.Warn().
			Str("job_id", res.JobID).
			Str("error_type", string(domain.TypeOf(res.Err))).
			Msg("Conversion failed")
		writeText(w, http.StatusInternalServerError, res.Message())
	}
}

// GetJob handles GET /jobs/{jobId}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")

	rec, err := h.jobs.Get(r.Context(), id)
	if errors.Is(err, jobstore.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to load job")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
