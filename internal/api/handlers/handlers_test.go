package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/infra/memory"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	jobsmem "github.com/dvloznov/agricole-sync/internal/jobs/inmemory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of jobs.Publisher for testing.
type MockPublisher struct {
	PublishSyncFunc func(ctx context.Context, job *jobs.SyncJob) error
}

func (m *MockPublisher) PublishSync(ctx context.Context, job *jobs.SyncJob) error {
	if m.PublishSyncFunc != nil {
		return m.PublishSyncFunc(ctx, job)
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	return nil
}

func (m *MockPublisher) Close() error { return nil }

type fixture struct {
	router   http.Handler
	store    *memory.Store
	jobStore *jobsmem.Store
}

func newFixture(t *testing.T, publisher jobs.Publisher) *fixture {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()
	jobStore := jobsmem.NewStore()
	if publisher == nil {
		publisher = &MockPublisher{}
	}
	return &fixture{
		router: NewRouter(
			NewSyncsHandler(publisher, log),
			NewAccountsHandler(store, log),
			NewJobsHandler(jobStore, log),
		),
		store:    store,
		jobStore: jobStore,
	}
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEnqueueSync(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/syncs")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "pending", body["status"])

	rec = f.do(http.MethodGet, "/api/syncs")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEnqueueSync_QueueClosed(t *testing.T) {
	f := newFixture(t, &MockPublisher{
		PublishSyncFunc: func(context.Context, *jobs.SyncJob) error {
			return errors.New("queue is closed")
		},
	})

	rec := f.do(http.MethodPost, "/api/syncs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnqueueSync_AlreadyPending(t *testing.T) {
	f := newFixture(t, &MockPublisher{
		PublishSyncFunc: func(context.Context, *jobs.SyncJob) error {
			return fmt.Errorf("%w: job-0", jobs.ErrSyncPending)
		},
	})

	rec := f.do(http.MethodPost, "/api/syncs")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "job-0")
}

func TestListAccounts(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/accounts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])

	balance := decimal.RequireFromString("12.50")
	require.NoError(t, f.store.UpsertAccounts(context.Background(), []*domain.Account{
		{ID: "a1", Number: "111", Label: "CCHQ", Balance: &balance},
	}))

	rec = f.do(http.MethodGet, "/api/accounts")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	accounts := body["accounts"].([]interface{})
	assert.Equal(t, "a1", accounts[0].(map[string]interface{})["_id"])
}

func TestGetBalanceHistory(t *testing.T) {
	f := newFixture(t, nil)
	h := domain.NewBalanceHistory("a1", 2023)
	h.Balances["2023-05-01"] = decimal.NewFromInt(7)
	require.NoError(t, f.store.UpsertBalanceHistories(context.Background(), []*domain.BalanceHistory{h}))

	rec := f.do(http.MethodGet, "/api/balances/a1?year=2023")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2023), body["year"])
	assert.Equal(t, "7", body["balances"].(map[string]interface{})["2023-05-01"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/balances/a1?year=2022").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/balances/a1?year=abc").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/balances/").Code)
}

func TestJobs(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.jobStore.SaveJob(context.Background(), &jobs.SyncJob{
		JobID:     "j1",
		Status:    jobs.JobStatusFailed,
		ErrorKind: string(domain.KindLoginFailed),
		CreatedAt: time.Now(),
	}))

	rec := f.do(http.MethodGet, "/api/jobs/j1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LOGIN_FAILED", decode(t, rec)["error_kind"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/jobs/nope").Code)

	rec = f.do(http.MethodGet, "/api/jobs?status=failed&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = f.do(http.MethodGet, "/api/jobs?status=completed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}
