// Package generate implements the per-kind content pipelines run by the job
// runner. Each pipeline writes into the job's private directory and returns
// the storage key of the artifact the client downloads.
package generate

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/prompts"
	"contentmaker/internal/providers/image"
	"contentmaker/internal/providers/music"
	"contentmaker/internal/providers/speech"
	"contentmaker/internal/providers/text"
	"contentmaker/internal/storage"
	"contentmaker/pkg/zip"
)

// Providers bundles the generation backends.
type Providers struct {
	Text   text.Generator
	Images image.Generator
	Speech speech.Synthesizer
	Music  music.Composer
	Tokens *text.TokenCounter
}

// Options tunes the engine.
type Options struct {
	// ProviderTimeout bounds every single provider call.
	ProviderTimeout time.Duration
	DefaultVoice    string
}

// Engine dispatches a request to the pipeline of its kind.
type Engine struct {
	p       Providers
	files   *storage.FileStore
	timeout time.Duration
	voice   string
	logger  zerolog.Logger
}

// New creates an engine writing through files.
func New(p Providers, files *storage.FileStore, opts Options, logger zerolog.Logger) *Engine {
	timeout := opts.ProviderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	voice := opts.DefaultVoice
	if voice == "" {
		voice = speech.DefaultVoice
	}
	return &Engine{p: p, files: files, timeout: timeout, voice: voice, logger: logger}
}

// Generate implements jobs.Pipeline.
func (e *Engine) Generate(ctx context.Context, job domain.Job, req domain.Request, dir string) (string, error) {
	run := &run{Engine: e, dir: dir, lang: prompts.LanguageName(req.Language), logger: e.logger.With().Str("job_id", job.ID).Logger()}
	switch spec := req.Spec.(type) {
	case *domain.ArticleSpec:
		return run.article(ctx, req, spec)
	case *domain.PostSpec:
		return run.post(ctx, req, spec)
	case *domain.TweetThreadSpec:
		return run.tweetThread(ctx, req, spec)
	case *domain.BookChapterSpec:
		return run.bookChapter(ctx, spec)
	case *domain.StorySpec:
		return run.story(ctx, req, spec)
	case *domain.EducationalSpec:
		return run.educational(ctx, req, spec)
	case *domain.PodcastSpec:
		return run.podcast(ctx, spec)
	case *domain.MusicSpec:
		return run.track(ctx, spec)
	case *domain.GameSpec:
		return run.game(ctx, spec)
	default:
		return "", fmt.Errorf("generate: unsupported content type %q", req.Kind())
	}
}

// run carries the state of one pipeline execution.
type run struct {
	*Engine
	dir    string
	lang   string
	logger zerolog.Logger
}

func (r *run) key(name string) string {
	return path.Join(r.dir, name)
}

// complete renders a prompt template and sends it to the text backend.
func (r *run) complete(ctx context.Context, step, tmpl string, data any, req text.Request) (string, error) {
	prompt, err := prompts.Render(tmpl, data)
	if err != nil {
		return "", domain.StepError(step, err)
	}
	req.Prompt = prompt
	if req.MaxTokens > 0 {
		req.MaxTokens = r.p.Tokens.Budget(prompt, req.MaxTokens)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	resp, err := r.p.Text.Generate(callCtx, req)
	if err != nil {
		return "", domain.StepError(step, err)
	}
	r.logger.Debug().
		Str("step", step).
		Str("provider", r.p.Text.Name()).
		Int("tokens", resp.TokensUsed).
		Dur("elapsed", time.Since(start)).
		Msg("generate: text ready")
	return resp.Text, nil
}

func (r *run) write(ctx context.Context, step, name string, data []byte) (string, error) {
	key, err := r.files.Write(ctx, r.key(name), data)
	if err != nil {
		return "", domain.StepError(step, err)
	}
	return key, nil
}

func (r *run) drawImage(ctx context.Context, name string, req image.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	asset, err := r.p.Images.Generate(callCtx, req)
	if err != nil {
		return "", domain.StepError("generate image "+name, err)
	}
	return r.write(ctx, "save image "+name, name, asset.Data)
}

func (r *run) speak(ctx context.Context, base, script, voice string) (string, error) {
	if voice == "" {
		voice = r.voice
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	audio, err := r.p.Speech.Synthesize(callCtx, script, voice)
	if err != nil {
		return "", domain.StepError("synthesize speech", err)
	}
	return r.write(ctx, "save audio", base+audio.Ext, audio.Data)
}

func (r *run) compose(ctx context.Context, name string, t music.Track) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	data, err := r.p.Music.Compose(callCtx, t)
	if err != nil {
		return "", domain.StepError("compose music", err)
	}
	return r.write(ctx, "save music", name, data)
}

// archive zips every file of the job directory into name.
func (r *run) archive(ctx context.Context, name string) (string, error) {
	root, err := r.files.Path(r.dir)
	if err != nil {
		return "", domain.StepError("archive", err)
	}
	w, key, err := r.files.Create(ctx, r.key(name))
	if err != nil {
		return "", domain.StepError("archive", err)
	}
	if err := zip.ArchiveDir(w, root, name); err != nil {
		w.Close()
		return "", domain.StepError("archive", err)
	}
	if err := w.Close(); err != nil {
		return "", domain.StepError("archive", err)
	}
	return key, nil
}

// paragraphs splits prose on blank lines.
func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
