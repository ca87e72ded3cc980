package text

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 2000
)

// AnthropicOptions configures the Anthropic messages backend.
type AnthropicOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	BaseBackoff time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Anthropic generates text with the messages API. Rate limited calls are
// retried with exponential backoff.
type Anthropic struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	backoff     time.Duration
	logger      zerolog.Logger
}

// NewAnthropic builds the backend. An API key is required.
func NewAnthropic(opts AnthropicOptions) (*Anthropic, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("text: anthropic api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Anthropic{
		client:      anthropic.NewClient(reqOpts...),
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
		maxRetries:  retries,
		backoff:     backoff,
		logger:      opts.Logger,
	}, nil
}

// Name implements Generator.
func (a *Anthropic) Name() string { return "anthropic" }

// Generate implements Generator.
func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > a.maxTokens {
		maxTokens = a.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
	}
	if s := strings.TrimSpace(req.System); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = a.temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * a.backoff
			if wait > maxBackoff {
				wait = maxBackoff
			}
			a.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", wait).Msg("text: anthropic rate limited; retrying")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			lastErr = err
			if anthropicRateLimited(err) {
				continue
			}
			return Response{}, providerError(a.Name(), err)
		}
		var b strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		content := strings.TrimSpace(b.String())
		if content == "" {
			return Response{}, providerError(a.Name(), errors.New("empty completion"))
		}
		return Response{
			Text:       content,
			Model:      string(msg.Model),
			TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}, nil
	}
	return Response{}, fmt.Errorf("%w: anthropic: %d attempts: %v", domain.ErrRateLimited, a.maxRetries+1, lastErr)
}

func anthropicRateLimited(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
