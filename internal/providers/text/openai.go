package text

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultBaseBackoff = 2 * time.Second
	maxBackoff         = 32 * time.Second
)

// OpenAIOptions configures the OpenAI chat completion backend.
type OpenAIOptions struct {
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

// OpenAI generates text with the chat completions API. Rate limited calls
// are retried with exponential backoff.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	backoff     time.Duration
	logger      zerolog.Logger
}

// NewOpenAI builds the backend. An API key is required.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("text: openai api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		// retries are handled here so they can be logged and bounded by ctx
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
		model = defaultOpenAIModel
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &OpenAI{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		maxRetries:  retries,
		backoff:     backoff,
		logger:      opts.Logger,
	}, nil
}

// Name implements Generator.
func (o *OpenAI) Name() string { return "openai" }

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: o.messages(req),
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = o.temperature
	}
	params.Temperature = openai.Float(temperature)
	if maxTokens := o.tokenLimit(req.MaxTokens); maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * o.backoff
			if wait > maxBackoff {
				wait = maxBackoff
			}
			o.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", wait).Msg("text: openai rate limited; retrying")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		completion, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimited(err) {
				continue
			}
			return Response{}, providerError(o.Name(), err)
		}
		if len(completion.Choices) == 0 {
			return Response{}, providerError(o.Name(), errors.New("no completion choices returned"))
		}
		content := strings.TrimSpace(completion.Choices[0].Message.Content)
		if content == "" {
			return Response{}, providerError(o.Name(), errors.New("empty completion"))
		}
		return Response{
			Text:       content,
			Model:      completion.Model,
			TokensUsed: int(completion.Usage.TotalTokens),
		}, nil
	}
	return Response{}, fmt.Errorf("%w: openai: %d attempts: %v", domain.ErrRateLimited, o.maxRetries+1, lastErr)
}

func (o *OpenAI) messages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if s := strings.TrimSpace(req.System); s != "" {
		msgs = append(msgs, openai.SystemMessage(s))
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}

// tokenLimit returns the smaller of the requested and configured limits.
func (o *OpenAI) tokenLimit(requested int) int {
	switch {
	case requested <= 0:
		return o.maxTokens
	case o.maxTokens > 0 && requested > o.maxTokens:
		return o.maxTokens
	default:
		return requested
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
