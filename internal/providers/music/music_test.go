package music

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataBytes(t *testing.T, wavData []byte) uint32 {
	t.Helper()
	require.GreaterOrEqual(t, len(wavData), 44)
	return binary.LittleEndian.Uint32(wavData[40:44])
}

func TestComposeGenres(t *testing.T) {
	s := &Synth{SampleRate: 8000}
	for _, genre := range []string{"electronic", "ambient", "jazz"} {
		t.Run(genre, func(t *testing.T) {
			data, err := s.Compose(context.Background(), Track{DurationSeconds: 2, Tempo: 120, Genre: genre})
			require.NoError(t, err)
			assert.Equal(t, uint32(2*8000*2), dataBytes(t, data))
		})
	}
}

func TestComposeCapsDuration(t *testing.T) {
	s := &Synth{SampleRate: 8000, MaxSeconds: 1}
	data, err := s.Compose(context.Background(), Track{DurationSeconds: 60, Genre: "ambient"})
	require.NoError(t, err)
	assert.Equal(t, uint32(8000*2), dataBytes(t, data))
}

func TestComposeRejectsZeroDuration(t *testing.T) {
	_, err := NewSynth(0).Compose(context.Background(), Track{})
	assert.Error(t, err)
}
