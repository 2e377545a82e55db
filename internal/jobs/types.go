// Package jobs describes the sync jobs queued by the API and the scheduled worker.
package jobs

import (
	"context"
	"errors"
	"time"
)

type JobType string

const JobTypeSync JobType = "sync"

type JobStatus string

// A job moves pending → running → completed or failed. Failed jobs are never retried.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

var (
	// ErrJobNotFound is returned by a JobStore for an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrSyncPending is returned by PublishSync while another sync waits to start.
	ErrSyncPending = errors.New("a sync is already pending")

	// ErrQueueClosed is returned once the queue has been stopped.
	ErrQueueClosed = errors.New("queue is closed")
)

// SyncSummary is what a finished sync job reports.
type SyncSummary struct {
	Generation   string `json:"generation"`
	Accounts     int    `json:"accounts"`
	Transactions int    `json:"transactions"`
	Histories    int    `json:"histories"`
}

// SyncJob is one sync run, requested through the API or scheduled by the worker.
type SyncJob struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed, ErrorKind its classification.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	Summary *SyncSummary `json:"summary,omitempty"`
}

// Job is implemented by every queued job.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *SyncJob) GetID() string        { return j.JobID }
func (j *SyncJob) GetType() JobType     { return JobTypeSync }
func (j *SyncJob) GetStatus() JobStatus { return j.Status }

// Publisher queues sync jobs.
type Publisher interface {
	// PublishSync assigns the job its id and queues it. It fails with ErrSyncPending while
	// another sync is waiting to start.
	PublishSync(ctx context.Context, job *SyncJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error

	// Stop waits for the running job, bounded by ctx.
	Stop(ctx context.Context) error
}

// JobHandler runs one job. A *domain.Error return is recorded with its kind.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job states for the API.
type JobStore interface {
	SaveJob(ctx context.Context, job *SyncJob) error

	// GetJob returns ErrJobNotFound for an unknown id.
	GetJob(ctx context.Context, jobID string) (*SyncJob, error)

	// ListJobs returns the jobs matching filter, most recent first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter selects jobs. Zero fields match everything.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
