// Package music renders placeholder background tracks.
package music

import (
	"context"
	"fmt"
	"math"
	"strings"

	"contentmaker/pkg/wav"
)

// Track describes the music to render.
type Track struct {
	DurationSeconds int
	Tempo           int
	Genre           string
	Mood            string
}

// Composer is implemented by music backends.
type Composer interface {
	Compose(ctx context.Context, t Track) ([]byte, error)
}

// Synth renders tracks procedurally as 16-bit PCM WAV. MaxSeconds, when
// positive, caps the rendered duration; TEST_MODE uses it to keep clips short.
type Synth struct {
	SampleRate int
	MaxSeconds int
}

// NewSynth returns a synth at 44.1 kHz.
func NewSynth(maxSeconds int) *Synth {
	return &Synth{SampleRate: wav.SampleRate, MaxSeconds: maxSeconds}
}

// Compose implements Composer.
func (s *Synth) Compose(ctx context.Context, t Track) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	duration := t.DurationSeconds
	if duration <= 0 {
		return nil, fmt.Errorf("music: duration must be positive")
	}
	if s.MaxSeconds > 0 && duration > s.MaxSeconds {
		duration = s.MaxSeconds
	}
	tempo := t.Tempo
	if tempo <= 0 {
		tempo = 120
	}
	rate := s.SampleRate
	if rate <= 0 {
		rate = wav.SampleRate
	}

	var signal []float64
	switch strings.ToLower(strings.TrimSpace(t.Genre)) {
	case "electronic":
		signal = electronic(duration, tempo, rate)
	case "ambient":
		signal = ambient(duration, rate)
	default:
		signal = tone(duration, rate)
	}
	return wav.Bytes(wav.Normalize(signal), rate)
}

const baseFreq = 440.0

// electronic plays staccato sixteenth notes climbing a chromatic scale over
// a low kick on every beat.
func electronic(seconds, tempo, rate int) []float64 {
	n := seconds * rate
	out := make([]float64, n)
	bps := float64(tempo) / 60
	noteLen := 1 / (bps * 4)
	for i := 0; ; i++ {
		start := float64(i) * noteLen
		end := start + noteLen/2
		if end > float64(seconds) {
			break
		}
		freq := baseFreq * math.Pow(2, float64(i%12+3)/12)
		for k := int(start * float64(rate)); k < int(end*float64(rate)) && k < n; k++ {
			out[k] = math.Sin(2 * math.Pi * freq * float64(k) / float64(rate))
		}
	}
	for beat := 0; float64(beat) < float64(seconds)*bps; beat++ {
		start := int(float64(beat) / bps * float64(rate))
		for k := start; k < start+rate/20 && k < n; k++ {
			out[k] += 0.5 * math.Sin(2*math.Pi*60*float64(k)/float64(rate))
		}
	}
	return out
}

// ambient layers two slow, slightly detuned sines.
func ambient(seconds, rate int) []float64 {
	out := make([]float64, seconds*rate)
	for k := range out {
		tt := float64(k) / float64(rate)
		out[k] = 0.5 * (math.Sin(2*math.Pi*baseFreq/4*tt) + math.Sin(2*math.Pi*baseFreq/2*tt*1.05))
	}
	return out
}

func tone(seconds, rate int) []float64 {
	out := make([]float64, seconds*rate)
	for k := range out {
		out[k] = math.Sin(2 * math.Pi * baseFreq * float64(k) / float64(rate))
	}
	return out
}
