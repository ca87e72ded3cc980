package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentKind enumerates the kinds of content a job can produce.
type ContentKind string

const (
	KindStory          ContentKind = "story"
	KindEducational    ContentKind = "educational"
	KindPodcast        ContentKind = "podcast"
	KindArticle        ContentKind = "article"
	KindPost           ContentKind = "post"
	KindTweetThread    ContentKind = "tweet_thread"
	KindBookChapter    ContentKind = "book_chapter"
	KindMusic          ContentKind = "music"
	KindPlatformerGame ContentKind = "platformer_game"
)

// Kinds lists every supported content kind in a stable order.
var Kinds = []ContentKind{
	KindStory,
	KindEducational,
	KindPodcast,
	KindArticle,
	KindPost,
	KindTweetThread,
	KindBookChapter,
	KindMusic,
	KindPlatformerGame,
}

// Valid reports whether k is a supported content kind.
func (k ContentKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Job tracks one accepted content request through its lifecycle.
//
// A completed job always carries ResultLocation and never Error; a failed
// job always carries Error and never ResultLocation. Jobs that are not
// terminal carry neither.
type Job struct {
	ID             string
	Kind           ContentKind
	Status         JobStatus
	Topic          string
	OutputDir      string
	ResultLocation string
	Error          string
	Request        json.RawMessage
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// NewJob builds a pending job.
func NewJob(id string, req Request, outputDir string, now time.Time) (*Job, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &Job{
		ID:        id,
		Kind:      req.Kind(),
		Status:    JobStatusPending,
		Topic:     req.Topic,
		OutputDir: outputDir,
		Request:   raw,
		CreatedAt: now,
	}, nil
}

// Start moves a pending job to processing.
func (j *Job) Start(at time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusProcessing)
	}
	j.Status = JobStatusProcessing
	j.StartedAt = &at
	return nil
}

// Complete moves a processing job to completed together with its result location.
func (j *Job) Complete(location string, at time.Time) error {
	if location == "" {
		return fmt.Errorf("%w: empty result location", ErrInvalidTransition)
	}
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusCompleted)
	}
	j.Status = JobStatusCompleted
	j.ResultLocation = location
	j.Error = ""
	j.FinishedAt = &at
	return nil
}

// Fail moves a processing job to failed together with its error message.
func (j *Job) Fail(message string, at time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	return j.fail(message, at)
}

// Abandon fails a job that is pending or processing. It is used when a job
// will never be picked up again, e.g. after a restart.
func (j *Job) Abandon(message string, at time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	return j.fail(message, at)
}

func (j *Job) fail(message string, at time.Time) error {
	if message == "" {
		message = "unknown error"
	}
	j.Status = JobStatusFailed
	j.Error = message
	j.ResultLocation = ""
	j.FinishedAt = &at
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() Job {
	out := *j
	if j.Request != nil {
		out.Request = append(json.RawMessage(nil), j.Request...)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
