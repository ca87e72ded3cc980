package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"contentmaker/internal/domain"
)

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".txt":  "text/plain; charset=utf-8",
	".json": "application/json",
	".zip":  "application/zip",
	".html": "text/html; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
}

// MediaType returns the content type served for a file name.
func MediaType(name string) string {
	if t, ok := mediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Download streams the artifact of a completed job.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	job, err := a.Store.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ext := strings.ToLower(path.Ext(job.ResultLocation))
	a.serveArtifact(w, r, job, fmt.Sprintf("%s_%s%s", job.Kind, job.ID, ext))
}

// GameDownload streams game.zip of a finished game job.
func (a *App) GameDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := a.gameJob(w, r)
	if !ok {
		return
	}
	a.serveArtifact(w, r, job, "game.zip")
}

func (a *App) serveArtifact(w http.ResponseWriter, r *http.Request, job domain.Job, filename string) {
	if job.Status != domain.JobStatusCompleted {
		a.fail(w, r, domain.ErrNotReady)
		return
	}
	f, info, err := a.Files.Open(job.ResultLocation)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", domain.ErrArtifactMissing, job.ResultLocation)
		}
		a.fail(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", MediaType(job.ResultLocation))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}
