// Package client talks to the content API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentmaker/internal/domain"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	return msg
}

// Client is a small API client. The zero HTTPClient uses a 30s timeout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Accepted is the answer to a submission.
type Accepted struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Result describes the artifact of a completed job.
type Result struct {
	File        string `json:"file"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
}

// Status mirrors GET /status/{job_id}.
type Status struct {
	JobID       string           `json:"job_id"`
	Status      domain.JobStatus `json:"status"`
	ContentType string           `json:"content_type"`
	Topic       string           `json:"topic"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`
	Error       *string          `json:"error"`
	Result      *Result          `json:"result"`
}

// Submit posts a raw JSON content request.
func (c *Client) Submit(ctx context.Context, body []byte) (Accepted, error) {
	var out Accepted
	err := c.do(ctx, http.MethodPost, "/generate", body, &out)
	return out, err
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (Status, error) {
	var out Status
	err := c.do(ctx, http.MethodGet, "/status/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

// Wait polls until the job is terminal or ctx ends.
func (c *Client) Wait(ctx context.Context, jobID string, every time.Duration) (Status, error) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return st, err
		}
		if st.Status.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download copies the artifact to w and returns the server-suggested file name.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/download/"+url.PathEscape(jobID), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("api: read artifact: %w", err)
	}
	name := jobID
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Field   string `json:"field"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error.Code != "" {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
		apiErr.Field = payload.Error.Field
	}
	return nil, apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
