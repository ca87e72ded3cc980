// Package jobs owns the job registry and everything that moves a job through
// its lifecycle: submission, background execution, retention and restart
// reconciliation.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

// Store is the process-wide registry of jobs. All access goes through its
// lock; callers only ever receive copies.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	clock   infra.Clock
	journal *JournalWriter
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithJournal mirrors every mutation to j in commit order.
func WithJournal(j *JournalWriter) StoreOption {
	return func(s *Store) { s.journal = j }
}

// NewStore creates an empty store using clock for transition timestamps.
func NewStore(clock infra.Clock, opts ...StoreOption) *Store {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	s := &Store{jobs: make(map[string]*domain.Job), clock: clock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kind   domain.ContentKind
	Status domain.JobStatus
	Limit  int
}

// Create inserts a new job. Identifiers are never reused.
func (s *Store) Create(job *domain.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("jobs: job id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateJob, job.ID)
	}
	stored := job.Clone()
	s.jobs[job.ID] = &stored
	s.journalSave(stored)
	return nil
}

// Get returns a snapshot of the job, or domain.ErrNotFound.
func (s *Store) Get(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// List returns matching jobs, newest first.
func (s *Store) List(f Filter) []domain.Job {
	s.mu.RLock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if f.Kind != "" && job.Kind != f.Kind {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// MarkProcessing claims a pending job for a worker.
func (s *Store) MarkProcessing(id string) (domain.Job, error) {
	return s.update(id, func(j *domain.Job, now time.Time) error { return j.Start(now) })
}

// Complete records success; status and location change together.
func (s *Store) Complete(id, location string) (domain.Job, error) {
	return s.update(id, func(j *domain.Job, now time.Time) error { return j.Complete(location, now) })
}

// Fail records failure; status and message change together.
func (s *Store) Fail(id, message string) (domain.Job, error) {
	return s.update(id, func(j *domain.Job, now time.Time) error { return j.Fail(message, now) })
}

// Abandon fails a job that will never run to completion, whether it is
// pending or processing.
func (s *Store) Abandon(id, message string) (domain.Job, error) {
	return s.update(id, func(j *domain.Job, now time.Time) error { return j.Abandon(message, now) })
}

func (s *Store) update(id string, fn func(*domain.Job, time.Time) error) (domain.Job, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	next := job.Clone()
	if err := fn(&next, now); err != nil {
		return job.Clone(), err
	}
	*job = next
	snap := job.Clone()
	s.journalSave(snap)
	return snap, nil
}

// Delete removes a job record. Only the retention sweeper calls it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.jobs, id)
	if s.journal != nil {
		s.journal.enqueue(journalOp{deleteID: id})
	}
	return nil
}

// CreatedBefore returns the ids of jobs created strictly before cutoff.
func (s *Store) CreatedBefore(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether a record with id exists.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[id]
	return ok
}

// Restore loads previously journaled jobs without writing them back.
// Records already present are kept.
func (s *Store) Restore(jobs []domain.Job) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range jobs {
		if jobs[i].ID == "" {
			continue
		}
		if _, ok := s.jobs[jobs[i].ID]; ok {
			continue
		}
		stored := jobs[i].Clone()
		s.jobs[stored.ID] = &stored
		n++
	}
	return n
}

func (s *Store) journalSave(job domain.Job) {
	if s.journal != nil {
		s.journal.enqueue(journalOp{save: &job})
	}
}
