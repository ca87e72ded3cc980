package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"contentmaker/internal/domain"
	"contentmaker/internal/jobs"
	"contentmaker/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListJobs returns jobs newest first, filtered by content_type and status.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := jobs.Filter{
		Kind:   domain.ContentKind(q.Get("content_type")),
		Status: domain.JobStatus(q.Get("status")),
		Limit:  defaultListLimit,
	}
	if f.Kind != "" && !f.Kind.Valid() {
		a.fail(w, r, &domain.ValidationError{Field: "content_type", Message: "unknown content type"})
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		a.fail(w, r, &domain.ValidationError{Field: "status", Message: "unknown status"})
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			a.fail(w, r, &domain.ValidationError{Field: "limit", Message: "must be between 1 and 200"})
			return
		}
		f.Limit = limit
	}

	list := a.Store.List(f)
	items := make([]statusResponse, 0, len(list))
	for _, job := range list {
		items = append(items, a.statusOf(job, "/download/"+job.ID))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// JobFiles lists every file in a job's directory.
func (a *App) JobFiles(w http.ResponseWriter, r *http.Request) {
	job, err := a.Store.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	files, err := a.Files.ListFiles(job.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		files, err = []storage.FileInfo{}, nil
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"job_id": job.ID, "status": job.Status, "files": files})
}
