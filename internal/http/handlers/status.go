package handlers

import (
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"contentmaker/internal/domain"
)

type resultDTO struct {
	File        string `json:"file"`
	SizeBytes   *int64 `json:"size_bytes,omitempty"`
	DownloadURL string `json:"download_url"`
}

type statusResponse struct {
	JobID       string             `json:"job_id"`
	Status      domain.JobStatus   `json:"status"`
	ContentType domain.ContentKind `json:"content_type"`
	Topic       string             `json:"topic,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at"`
	Error       *string            `json:"error"`
	Result      *resultDTO         `json:"result,omitempty"`
}

// Status reports the state of a job. It never waits for the job.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	job, err := a.Store.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.statusOf(job, "/download/"+job.ID))
}

func (a *App) statusOf(job domain.Job, downloadURL string) statusResponse {
	resp := statusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		ContentType: job.Kind,
		Topic:       job.Topic,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.FinishedAt,
	}
	if job.Status == domain.JobStatusFailed {
		msg := job.Error
		resp.Error = &msg
	}
	if job.Status == domain.JobStatusCompleted {
		res := &resultDTO{File: path.Base(job.ResultLocation), DownloadURL: downloadURL}
		if a.Files != nil {
			if info, err := a.Files.Stat(job.ResultLocation); err == nil {
				size := info.Size()
				res.SizeBytes = &size
			}
		}
		resp.Result = res
	}
	return resp
}

type gameStatusResponse struct {
	Status domain.JobStatus `json:"status"`
	Error  *string          `json:"error"`
}

// GameStatus is Status narrowed to platformer games.
func (a *App) GameStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.gameJob(w, r)
	if !ok {
		return
	}
	resp := gameStatusResponse{Status: job.Status}
	if job.Status == domain.JobStatusFailed {
		msg := job.Error
		resp.Error = &msg
	}
	a.json(w, http.StatusOK, resp)
}

// gameJob loads the job named in the URL; jobs of other kinds are reported
// as not found.
func (a *App) gameJob(w http.ResponseWriter, r *http.Request) (domain.Job, bool) {
	job, err := a.Store.Get(chi.URLParam(r, "job_id"))
	if err == nil && job.Kind != domain.KindPlatformerGame {
		err = domain.ErrNotFound
	}
	if err != nil {
		a.fail(w, r, err)
		return domain.Job{}, false
	}
	return job, true
}
