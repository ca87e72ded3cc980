package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
	"contentmaker/internal/sqlinline"
)

// JobJournalPG implements domain.JobJournal on PostgreSQL.
type JobJournalPG struct {
	db infra.SQLExecutor
}

// NewJobJournal creates a journal backed by db, usually an *infra.SQLRunner.
func NewJobJournal(db infra.SQLExecutor) *JobJournalPG {
	return &JobJournalPG{db: db}
}

// EnsureSchema creates the journal table when missing.
func (r *JobJournalPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsureContentJobs); err != nil {
		return fmt.Errorf("ensure content_jobs: %w", err)
	}
	return nil
}

// Save upserts the job snapshot. Immutable columns are written only on insert.
func (r *JobJournalPG) Save(ctx context.Context, job domain.Job) error {
	request := job.Request
	if len(request) == 0 {
		request = json.RawMessage("{}")
	}
	_, err := r.db.Exec(ctx, sqlinline.QUpsertContentJob,
		job.ID,
		string(job.Kind),
		string(job.Status),
		job.Topic,
		job.OutputDir,
		job.ResultLocation,
		job.Error,
		[]byte(request),
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Delete removes the job row. Deleting an absent job is not an error.
func (r *JobJournalPG) Delete(ctx context.Context, jobID string) error {
	if _, err := r.db.Exec(ctx, sqlinline.QDeleteContentJob, jobID); err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	return nil
}

// LoadAll returns every journaled job, oldest first.
func (r *JobJournalPG) LoadAll(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListContentJobs)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var (
			job               domain.Job
			kind, status      string
			request           []byte
			started, finished *time.Time
		)
		if err := rows.Scan(
			&job.ID,
			&kind,
			&status,
			&job.Topic,
			&job.OutputDir,
			&job.ResultLocation,
			&job.Error,
			&request,
			&job.CreatedAt,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Kind = domain.ContentKind(kind)
		job.Status = domain.JobStatus(status)
		if !job.Kind.Valid() || !job.Status.Valid() {
			return nil, fmt.Errorf("job %s: unknown kind %q or status %q", job.ID, kind, status)
		}
		job.Request = json.RawMessage(request)
		job.StartedAt = started
		job.FinishedAt = finished
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

var _ domain.JobJournal = (*JobJournalPG)(nil)
