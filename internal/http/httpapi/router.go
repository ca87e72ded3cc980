// Package httpapi assembles the HTTP router.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"contentmaker/internal/http/handlers"
	"contentmaker/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	// TrustProxy takes the client address from X-Real-IP and
	// X-Forwarded-For. Enable it only behind a proxy that sets them.
	TrustProxy      bool
	CountryLookup   middleware.CountryLookup
	CountryLanguage middleware.CountryLanguage
}

// NewRouter mounts the job API on a chi router.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Locale(opts.CountryLookup, opts.CountryLanguage),
	)

	r.Get("/", app.Root)
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	// Only job creation counts against the limit; polling stays free.
	limit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	r.With(limit).Post("/generate", app.Generate)
	r.Get("/status/{job_id}", app.Status)
	r.Get("/download/{job_id}", app.Download)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", app.ListJobs)
		r.Get("/{job_id}/files", app.JobFiles)
	})

	r.Route("/games", func(r chi.Router) {
		r.With(limit).Post("/", app.CreateGame)
		r.Get("/{job_id}/status", app.GameStatus)
		r.Get("/{job_id}/download", app.GameDownload)
	})

	return r
}
