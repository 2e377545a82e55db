package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/storage"
)

// BuildFunc wires the collaborators of one run.
type BuildFunc func(ctx context.Context, cfg *config.Config) (*Deps, func() error, error)

// NewJobHandler runs one sync per job against store.
func NewJobHandler(cfg *config.Config, store storage.Store) jobs.JobHandler {
	return JobHandler(cfg, func(ctx context.Context, cfg *config.Config) (*Deps, func() error, error) {
		return Build(ctx, cfg, store)
	})
}

// JobHandler runs one sync per job with the collaborators returned by build, and records
// the run summary on the job.
func JobHandler(cfg *config.Config, build BuildFunc) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().Str("job_id", syncJob.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		deps, closeDeps, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeDeps(); err != nil {
				log.Warn().Err(err).Msg("failed to release sync resources")
			}
		}()

		res, err := Run(ctx, cfg, deps)
		if err != nil {
			return err
		}

		syncJob.Summary = &jobs.SyncSummary{
			Generation:   res.Generation,
			Accounts:     res.Accounts,
			Transactions: res.Transactions,
			Histories:    res.Histories,
		}
		return nil
	}
}
