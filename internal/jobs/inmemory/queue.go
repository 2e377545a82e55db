package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/jobs"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/google/uuid"
)

// Queue runs sync jobs one at a time. At most one job waits to start: publishing while a
// job is pending fails with jobs.ErrSyncPending, so repeated requests never stack logins.
type Queue struct {
	ch      chan *jobs.SyncJob
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	store   jobs.JobStore
	closed  bool
	pending string

	now func() time.Time
}

// NewQueue creates a queue saving job states to store (which may be nil).
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Queue{
		ch:    make(chan *jobs.SyncJob, bufferSize),
		done:  make(chan struct{}),
		store: store,
		now:   time.Now,
	}
}

// PublishSync assigns the job an id and queues it.
func (q *Queue) PublishSync(ctx context.Context, job *jobs.SyncJob) error {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	job.Status = jobs.JobStatusPending
	return q.enqueue(ctx, job)
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.SyncJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return jobs.ErrQueueClosed
	}
	if q.pending != "" {
		pending := q.pending
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", jobs.ErrSyncPending, pending)
	}
	q.pending = job.JobID
	q.mu.Unlock()

	if err := q.save(ctx, job); err != nil {
		q.clearPending(job.JobID)
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.clearPending(job.JobID)
		return ctx.Err()
	case <-q.done:
		q.clearPending(job.JobID)
		return jobs.ErrQueueClosed
	}
}

func (q *Queue) clearPending(jobID string) {
	q.mu.Lock()
	if q.pending == jobID {
		q.pending = ""
	}
	q.mu.Unlock()
}

func (q *Queue) save(ctx context.Context, job *jobs.SyncJob) error {
	if q.store == nil {
		return nil
	}
	return q.store.SaveJob(ctx, job)
}

// Start launches the single worker draining the queue.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}

	q.wg.Add(1)
	go q.worker(ctx, handler)
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case job := <-q.ch:
			q.clearPending(job.JobID)
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.SyncJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()
	ctx = logger.WithContext(ctx, log)

	started := q.now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	job.CompletedAt = nil
	_ = q.save(ctx, job)

	err := handler(ctx, job)

	completed := q.now()
	job.CompletedAt = &completed

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error, job.ErrorKind = "", ""
		_ = q.save(ctx, job)
		log.Info().Dur("duration", completed.Sub(started)).Msg("sync job completed")
		return
	}

	// A failed sync is terminal: replaying a login can lock the customer out.
	job.Error = err.Error()
	kind, _ := domain.KindOf(err)
	job.ErrorKind = string(kind)
	job.Status = jobs.JobStatusFailed
	_ = q.save(ctx, job)
	log.Error().Err(err).Str("error_kind", job.ErrorKind).Msg("sync job failed")
}

// Stop closes the queue and waits for the running job, if any, to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
