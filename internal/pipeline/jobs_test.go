package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/infra/memory"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobHandler(t *testing.T) {
	store := memory.New()
	closed := false
	handler := pipeline.JobHandler(testConfig(), func(context.Context, *config.Config) (*pipeline.Deps, func() error, error) {
		return newDeps(store), func() error { closed = true; return nil }, nil
	})

	job := &jobs.SyncJob{JobID: "j1"}
	require.NoError(t, handler(logger.Nop(context.Background()), job))

	require.NotNil(t, job.Summary)
	assert.Equal(t, 2, job.Summary.Accounts)
	assert.Equal(t, 6, job.Summary.Transactions)
	assert.True(t, closed)
}

func TestJobHandler_RunFails(t *testing.T) {
	store := memory.New()
	closed := false
	handler := pipeline.JobHandler(testConfig(), func(context.Context, *config.Config) (*pipeline.Deps, func() error, error) {
		deps := newDeps(store)
		deps.Auth = &MockAuthenticator{
			LoginFunc: func(context.Context) (*portal.Session, error) {
				return nil, domain.NewError(domain.KindLoginFailed, "bad password", nil)
			},
		}
		return deps, func() error { closed = true; return nil }, nil
	})

	job := &jobs.SyncJob{JobID: "j1"}
	err := handler(logger.Nop(context.Background()), job)
	assert.ErrorIs(t, err, domain.ErrLoginFailed)
	assert.Nil(t, job.Summary)
	assert.True(t, closed)
}

func TestJobHandler_BuildFails(t *testing.T) {
	handler := pipeline.JobHandler(testConfig(), func(context.Context, *config.Config) (*pipeline.Deps, func() error, error) {
		return nil, nil, errors.New("no region")
	})
	assert.EqualError(t, handler(logger.Nop(context.Background()), &jobs.SyncJob{}), "no region")
}
