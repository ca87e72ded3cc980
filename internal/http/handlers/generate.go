package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"contentmaker/internal/domain"
	"contentmaker/internal/middleware"
)

// MaxRequestBytes bounds request bodies.
const MaxRequestBytes = 1 << 20

type acceptedResponse struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// Generate accepts a content request and returns 202 with the job id.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "request body too large or unreadable")
		return
	}
	req, err := domain.DecodeRequest(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.submit(w, r, req)
}

type gameRequest struct {
	Theme string `json:"theme"`
}

// CreateGame accepts {"theme": "..."} and queues a platformer game.
func (a *App) CreateGame(w http.ResponseWriter, r *http.Request) {
	var in gameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&in); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.submit(w, r, domain.NewGameRequest(in.Theme))
}

func (a *App) submit(w http.ResponseWriter, r *http.Request, req domain.Request) {
	if req.Language == "" {
		if locale := middleware.LocaleFromContext(r.Context()); locale != middleware.DefaultLocale {
			req.Language = locale
		}
	}
	ticket, err := a.Jobs.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, acceptedResponse{
		JobID:   ticket.ID,
		Status:  ticket.Status,
		Message: startedMessage(req.Kind()),
	})
}

func startedMessage(kind domain.ContentKind) string {
	label := strings.ReplaceAll(string(kind), "_", " ")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:] + " generation started"
}
