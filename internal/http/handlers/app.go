// Package handlers exposes the job API over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/jobs"
	"contentmaker/internal/storage"
)

// Submitter accepts content requests.
type Submitter interface {
	Submit(ctx context.Context, req domain.Request) (jobs.Ticket, error)
}

// JobReader reads job records.
type JobReader interface {
	Get(id string) (domain.Job, error)
	List(f jobs.Filter) []domain.Job
}

// App holds the dependencies shared by all handlers.
type App struct {
	Jobs   Submitter
	Store  JobReader
	Files  *storage.FileStore
	Logger zerolog.Logger
}

// NewApp wires the handlers.
func NewApp(submitter Submitter, store JobReader, files *storage.FileStore, logger zerolog.Logger) *App {
	return &App{Jobs: submitter, Store: store, Files: files, Logger: logger}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// fail maps domain errors onto status codes.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		a.json(w, http.StatusBadRequest, map[string]errorBody{"error": {Code: "validation_failed", Message: ve.Message, Field: ve.Field}})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrNotReady):
		a.error(w, http.StatusTooEarly, "not_ready", "content generation not completed")
	case errors.Is(err, domain.ErrArtifactMissing), errors.Is(err, fs.ErrNotExist):
		a.error(w, http.StatusGone, "gone", "artifact is no longer available")
	case errors.Is(err, domain.ErrRateLimited):
		a.error(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
