package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/agricole-sync/internal/api/middleware"
)

// NewRouter registers the API routes.
func NewRouter(syncs *SyncsHandler, accounts *AccountsHandler, jobsHandler *JobsHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Syncs endpoints
	mux.HandleFunc("/api/syncs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			syncs.EnqueueSync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			accounts.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/balances/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract account ID from path
			accountID := strings.TrimPrefix(r.URL.Path, "/api/balances/")
			if accountID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
				return
			}
			accounts.GetBalanceHistory(w, r, accountID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
