// Package image renders pictures for story scenes and game sprites.
package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"contentmaker/internal/infra"
)

// Request describes one image.
type Request struct {
	Prompt string
	Width  int
	Height int
	// Seed makes synthetic output reproducible; it does not affect remote models.
	Seed string
}

// Asset is an encoded image.
type Asset struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Ext returns the file extension matching the asset's media type.
func (a Asset) Ext() string {
	switch strings.ToLower(a.Format) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Generator is implemented by every image backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (Asset, error)
	Name() string
}

// New returns the Gemini backend when a key is configured and TEST_MODE is
// off, otherwise the synthetic renderer.
func New(cfg *infra.Config, logger zerolog.Logger) Generator {
	if cfg.TestMode || strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return NewSynthetic()
	}
	return NewGemini(GeminiOptions{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Logger:  logger,
	})
}

func normalizeSize(w, h int) (int, int) {
	if w <= 0 {
		w = 512
	}
	if h <= 0 {
		h = 512
	}
	return w, h
}

func aspectHint(w, h int) string {
	g := gcd(w, h)
	return fmt.Sprintf("%d:%d", w/g, h/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
