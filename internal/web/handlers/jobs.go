package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-dedup/internal/database"
)

// JobsHandler handles detection job status endpoints
type JobsHandler struct {
	jobs database.JobStore
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs database.JobStore) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

type jobResponse struct {
	ID              string         `json:"id"`
	ProgressCurrent int            `json:"progress_current"`
	ProgressTarget  int            `json:"progress_target"`
	ProgressStep    string         `json:"progress_step"`
	Result          map[string]any `json:"result,omitempty"`
	Finished        bool           `json:"finished"`
	Failed          bool           `json:"failed"`
	QueuedAt        time.Time      `json:"queued_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
}

// Get returns the status of one detection job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "owner is required")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.Get(r.Context(), jobID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		log.Printf("error loading job %s: %v", sanitizeForLog(jobID), err)
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.Owner != owner {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := jobResponse{
		ID:              job.ID,
		ProgressCurrent: job.ProgressCurrent,
		ProgressTarget:  job.ProgressTarget,
		ProgressStep:    job.ProgressStep,
		Result:          job.Result,
		Finished:        job.Finished,
		Failed:          job.Failed,
		QueuedAt:        job.QueuedAt,
	}
	if !job.StartedAt.IsZero() {
		resp.StartedAt = &job.StartedAt
	}
	if !job.FinishedAt.IsZero() {
		resp.FinishedAt = &job.FinishedAt
	}

	respondJSON(w, http.StatusOK, resp)
}
