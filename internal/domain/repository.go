package domain

import "context"

// JobJournal persists job snapshots so the in-memory store can be rebuilt
// after a restart.
type JobJournal interface {
	Save(ctx context.Context, job Job) error
	Delete(ctx context.Context, jobID string) error
	LoadAll(ctx context.Context) ([]Job, error)
}
