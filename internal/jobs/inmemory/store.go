package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/agricole-sync/internal/jobs"
)

// DefaultRetention is the number of jobs a Store keeps.
const DefaultRetention = 200

// Store keeps sync jobs in memory. Once more than its retention is stored, the oldest
// finished jobs are forgotten; pending and running jobs are always kept.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.SyncJob
	retention int
}

// NewStore creates a job store keeping DefaultRetention jobs.
func NewStore() *Store {
	return NewStoreWithRetention(DefaultRetention)
}

// NewStoreWithRetention creates a job store keeping at most retention jobs (0 keeps all).
func NewStoreWithRetention(retention int) *Store {
	return &Store{
		jobs:      make(map[string]*jobs.SyncJob),
		retention: retention,
	}
}

func copyJob(job *jobs.SyncJob) *jobs.SyncJob {
	c := *job
	if job.Summary != nil {
		summary := *job.Summary
		c.Summary = &summary
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func finished(s jobs.JobStatus) bool {
	return s == jobs.JobStatusCompleted || s == jobs.JobStatusFailed
}

// SaveJob stores a copy of the job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.SyncJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = copyJob(job)
	s.prune()
	return nil
}

// prune drops the oldest finished jobs beyond the retention. Callers hold mu.
func (s *Store) prune() {
	if s.retention <= 0 || len(s.jobs) <= s.retention {
		return
	}

	var done []*jobs.SyncJob
	for _, j := range s.jobs {
		if finished(j.Status) {
			done = append(done, j)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].CreatedAt.Before(done[j].CreatedAt) })

	for _, j := range done {
		if len(s.jobs) <= s.retention {
			return
		}
		delete(s.jobs, j.JobID)
	}
}

// GetJob returns a copy of the job, or jobs.ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns the jobs matching filter, most recent first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.SyncJob{}
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, copyJob(job))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.SyncJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus sets the status, and the error message when one is given.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
