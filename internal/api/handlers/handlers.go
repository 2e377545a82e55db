package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/agricole-sync/internal/api/middleware"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	"github.com/dvloznov/agricole-sync/internal/storage"
	"github.com/rs/zerolog"
)

// SyncsHandler handles sync-related endpoints.
type SyncsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSyncsHandler creates a new syncs handler.
func NewSyncsHandler(publisher jobs.Publisher, log zerolog.Logger) *SyncsHandler {
	return &SyncsHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueSync handles POST /api/syncs
func (h *SyncsHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job := &jobs.SyncJob{}
	err := h.publisher.PublishSync(ctx, job)
	if errors.Is(err, jobs.ErrSyncPending) {
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	store storage.Store
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(store storage.Store, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		store: store,
		log:   log,
	}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if accounts == nil {
		accounts = []*domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetBalanceHistory handles GET /api/balances/{accountId}?year=
// The year defaults to the current one.
func (h *AccountsHandler) GetBalanceHistory(w http.ResponseWriter, r *http.Request, accountID string) {
	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = y
	}

	history, err := h.store.GetBalanceHistory(r.Context(), accountID, year)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get balance history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get balance history")
		return
	}
	if history == nil {
		middleware.WriteError(w, http.StatusNotFound, "Balance history not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobsList == nil {
		jobsList = []*jobs.SyncJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
