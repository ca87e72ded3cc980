// Package text turns prompts into prose through a configurable LLM backend.
package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

// Shape tells offline generators what kind of answer a prompt expects.
// Remote models ignore it; the prompt itself carries the instruction.
type Shape string

const (
	ShapeProse       Shape = "prose"
	ShapeJSONList    Shape = "json_list"
	ShapeGameConcept Shape = "game_concept"
	ShapeGameCode    Shape = "game_code"
)

// Request is a single completion call.
type Request struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	Shape       Shape
	// Items is the expected list length for ShapeJSONList.
	Items int
}

// Response carries the generated text.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Generator is implemented by every text backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// New selects the backend named by cfg. TEST_MODE, or a hosted provider
// without a key, yields the synthetic generator.
func New(cfg *infra.Config, logger zerolog.Logger) (Generator, error) {
	provider := cfg.LLMProvider
	if cfg.TestMode {
		provider = infra.LLMProviderSynthetic
	}
	switch provider {
	case infra.LLMProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
			logger.Warn().Msg("text: OPENAI_API_KEY not set; using synthetic generator")
			return NewSynthetic(), nil
		}
		return NewOpenAI(OpenAIOptions{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			MaxRetries:  cfg.OpenAI.MaxRetries,
			Logger:      logger,
		})
	case infra.LLMProviderAnthropic:
		if strings.TrimSpace(cfg.Anthropic.APIKey) == "" {
			logger.Warn().Msg("text: ANTHROPIC_API_KEY not set; using synthetic generator")
			return NewSynthetic(), nil
		}
		return NewAnthropic(AnthropicOptions{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       cfg.Anthropic.Model,
			BaseURL:     cfg.Anthropic.BaseURL,
			Temperature: cfg.Anthropic.Temperature,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			MaxRetries:  cfg.Anthropic.MaxRetries,
			Logger:      logger,
		})
	case infra.LLMProviderOllama:
		return NewOllama(OllamaOptions{BaseURL: cfg.Ollama.BaseURL, Model: cfg.Ollama.Model}), nil
	case infra.LLMProviderSynthetic:
		return NewSynthetic(), nil
	default:
		return nil, fmt.Errorf("text: unsupported provider %q", provider)
	}
}

func providerError(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrProviderFailure, name, err)
}
