// Package speech converts scripts to narrated audio.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contentmaker/internal/domain"
	"contentmaker/internal/infra"
	"contentmaker/pkg/wav"
)

// Voices maps the public voice names to ElevenLabs voice ids.
var Voices = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"domi":   "AZnzlk1XvdvUeBnXmlld",
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"antoni": "ErXwobaYiN019PkySvjV",
	"elli":   "MF3mGyEYCl7XYWbV9V6O",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"arnold": "VR6AewLTigWG4xSOukaG",
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// DefaultVoice is used for unknown or empty voice names.
const DefaultVoice = "rachel"

// Audio is an encoded clip. Ext includes the leading dot.
type Audio struct {
	Data []byte
	Ext  string
}

// Synthesizer is implemented by every speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (Audio, error)
	Name() string
}

// New returns ElevenLabs when a key is configured and TEST_MODE is off.
func New(cfg *infra.Config, logger zerolog.Logger) Synthesizer {
	if cfg.TestMode || strings.TrimSpace(cfg.ElevenLabs.APIKey) == "" {
		return NewSynthetic()
	}
	return NewElevenLabs(ElevenLabsOptions{
		APIKey:       cfg.ElevenLabs.APIKey,
		BaseURL:      cfg.ElevenLabs.BaseURL,
		DefaultVoice: cfg.ElevenLabs.DefaultVoice,
		Logger:       logger,
	})
}

// VoiceID resolves a voice name, falling back to fallback and then rachel.
func VoiceID(name, fallback string) string {
	if id, ok := Voices[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id
	}
	if id, ok := Voices[strings.ToLower(strings.TrimSpace(fallback))]; ok {
		return id
	}
	return Voices[DefaultVoice]
}

// ElevenLabsOptions configures the text-to-speech client.
type ElevenLabsOptions struct {
	APIKey       string
	BaseURL      string
	DefaultVoice string
	ModelID      string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// ElevenLabs calls /v1/text-to-speech/{voice_id} and returns MP3 audio.
type ElevenLabs struct {
	apiKey       string
	baseURL      string
	defaultVoice string
	modelID      string
	client       *http.Client
	logger       zerolog.Logger
}

// NewElevenLabs creates the client.
func NewElevenLabs(opts ElevenLabsOptions) *ElevenLabs {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://api.elevenlabs.io"
	}
	model := opts.ModelID
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &ElevenLabs{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      base,
		defaultVoice: opts.DefaultVoice,
		modelID:      model,
		client:       client,
		logger:       opts.Logger,
	}
}

// Name implements Synthesizer.
func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize implements Synthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, fmt.Errorf("speech: empty text")
	}
	voiceID := VoiceID(voice, e.defaultVoice)
	body, err := json.Marshal(map[string]string{"text": text, "model_id": e.modelID})
	if err != nil {
		return Audio{}, fmt.Errorf("speech: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return Audio{}, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: elevenlabs: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusTooManyRequests {
		return Audio{}, fmt.Errorf("%w: elevenlabs", domain.ErrRateLimited)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Audio{}, fmt.Errorf("%w: elevenlabs status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: elevenlabs: read audio: %v", domain.ErrProviderFailure, err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("%w: elevenlabs: empty audio", domain.ErrProviderFailure)
	}
	e.logger.Debug().Str("voice_id", voiceID).Int("bytes", len(data)).Msg("speech: synthesized")
	return Audio{Data: data, Ext: ".mp3"}, nil
}

// Synthetic renders a 440 Hz tone instead of speech.
type Synthetic struct {
	Seconds float64
}

// NewSynthetic returns a synthesizer producing ten second clips.
func NewSynthetic() *Synthetic { return &Synthetic{Seconds: 10} }

// Name implements Synthesizer.
func (*Synthetic) Name() string { return "synthetic" }

// Synthesize implements Synthesizer.
func (s *Synthetic) Synthesize(ctx context.Context, text, _ string) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Audio{}, fmt.Errorf("speech: empty text")
	}
	data, err := wav.Bytes(wav.Sine(440, s.Seconds, wav.SampleRate), wav.SampleRate)
	if err != nil {
		return Audio{}, err
	}
	return Audio{Data: data, Ext: ".wav"}, nil
}
