package text

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Volcanoes are vents.  "}}],
  "usage": {"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9}
}`

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1", MaxTokens: 1000, Temperature: 0.7})
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), Request{Prompt: "Explain volcanoes", System: "be brief", MaxTokens: 5000})
	require.NoError(t, err)
	assert.Equal(t, "Volcanoes are vents.", resp.Text)
	assert.Equal(t, 9, resp.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 1000, got["max_tokens"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		_, _ = io.WriteString(w, completionBody)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 2, BaseBackoff: time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Volcanoes are vents.", resp.Text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAIGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 1, BaseBackoff: time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestOpenAIServerErrorIsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad model"}}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIOptions{})
	assert.Error(t, err)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "mistral", req.Model)
		assert.EqualValues(t, 300, req.Options["num_predict"])
		_, _ = io.WriteString(w, `{"model":"mistral","response":" Hello! ","done":true,"prompt_eval_count":3,"eval_count":2}`)
	}))
	defer srv.Close()

	gen := NewOllama(OllamaOptions{BaseURL: srv.URL + "/", Model: "mistral"})
	resp, err := gen.Generate(context.Background(), Request{Prompt: "hi", MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Text)
	assert.Equal(t, 5, resp.TokensUsed)
}

func TestOllamaFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		},
		"not done": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"response":"partial","done":false}`)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewOllama(OllamaOptions{BaseURL: srv.URL}).Generate(context.Background(), Request{Prompt: "hi"})
			assert.True(t, errors.Is(err, domain.ErrProviderFailure), "err = %v", err)
		})
	}
}

func TestSyntheticShapes(t *testing.T) {
	gen := NewSynthetic()
	ctx := context.Background()

	resp, err := gen.Generate(ctx, Request{Prompt: "Write a thread about: sourdough", Shape: ShapeJSONList, Items: 4})
	require.NoError(t, err)
	start, end := strings.Index(resp.Text, "["), strings.LastIndex(resp.Text, "]")
	var items []string
	require.NoError(t, json.Unmarshal([]byte(resp.Text[start:end+1]), &items))
	assert.Len(t, items, 4)

	resp, err = gen.Generate(ctx, Request{Prompt: "Theme: space pirates", Shape: ShapeGameConcept})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Name: Space Runner")
	assert.Contains(t, resp.Text, "Abilities:")

	again, err := gen.Generate(ctx, Request{Prompt: "Theme: space pirates", Shape: ShapeGameConcept})
	require.NoError(t, err)
	assert.Equal(t, resp, again)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &infra.Config{LLMProvider: infra.LLMProviderOpenAI}
	gen, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "synthetic", gen.Name(), "no key falls back")

	cfg.OpenAI.APIKey = "sk-test"
	gen, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())

	cfg.TestMode = true
	gen, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "synthetic", gen.Name())

	cfg = &infra.Config{LLMProvider: infra.LLMProviderAnthropic}
	gen, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "synthetic", gen.Name(), "no key falls back")

	cfg.Anthropic.APIKey = "sk-ant-test"
	gen, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", gen.Name())

	cfg = &infra.Config{LLMProvider: infra.LLMProviderOllama}
	gen, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ollama", gen.Name())

	_, err = New(&infra.Config{LLMProvider: "nope"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestTokenBudget(t *testing.T) {
	var c TokenCounter
	assert.Equal(t, 2, c.Count("abcdef"))
	assert.Equal(t, 2000, c.Budget("short prompt", 2000))
	assert.Equal(t, 256, c.Budget(strings.Repeat("x", 3*ContextWindow), 2000))
}

func TestSyntheticProseNamesTheTopic(t *testing.T) {
	gen := NewSynthetic()
	cases := map[string]string{
		"Write a well-structured article about \"volcanoes\".\nStyle and tone: neutral.": "volcanoes",
		"Write an engaging short story about the following character: a brave fox":       "a brave fox",
		"Create an educational explainer about fractions for beginner level learners.":   "fractions",
		"Create a natural, engaging podcast script about bees.":                          "bees",
	}
	for prompt, subject := range cases {
		resp, err := gen.Generate(context.Background(), Request{Prompt: prompt})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(resp.Text, "This piece explores "+subject+"."), resp.Text)
	}
}

const messageBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "  Lava flows downhill.  "}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 6, "output_tokens": 4}
}`

func TestAnthropicGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicOptions{APIKey: "sk-ant-test", BaseURL: srv.URL, MaxTokens: 1000, Temperature: 0.7})
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), Request{Prompt: "Explain lava", System: "be brief", MaxTokens: 5000})
	require.NoError(t, err)
	assert.Equal(t, "Lava flows downhill.", resp.Text)
	assert.Equal(t, 10, resp.TokensUsed)
	assert.Equal(t, "claude-3-5-haiku-latest", resp.Model)
	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.EqualValues(t, 1000, got["max_tokens"])
	assert.Len(t, got["messages"], 1)
	assert.NotNil(t, got["system"])
}

func TestAnthropicRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
			return
		}
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicOptions{APIKey: "sk-ant-test", BaseURL: srv.URL, MaxRetries: 2, BaseBackoff: time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Lava flows downhill.", resp.Text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAnthropicFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicOptions{APIKey: "sk-ant-test", BaseURL: srv.URL, MaxRetries: 1, BaseBackoff: time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	}))
	defer bad.Close()
	gen, err = NewAnthropic(AnthropicOptions{APIKey: "sk-ant-test", BaseURL: bad.URL})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)

	_, err = NewAnthropic(AnthropicOptions{})
	assert.Error(t, err)
}
