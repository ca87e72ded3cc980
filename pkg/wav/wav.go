// Package wav writes 16-bit PCM mono WAV files.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// SampleRate is the rate used by every generated clip.
const SampleRate = 44100

const headerSize = 44

// Encode writes samples as a mono 16-bit PCM WAV stream.
func Encode(w io.Writer, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("wav: sample rate must be positive")
	}
	dataLen := uint32(len(samples) * 2)
	hdr := struct {
		RIFF          [4]byte
		ChunkSize     uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     headerSize - 8 + dataLen,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataLen,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, samples)
}

// Bytes encodes samples into memory.
func Bytes(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(samples)*2)
	if err := Encode(&buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Sine renders a full-scale tone of freq Hz.
func Sine(freq float64, seconds float64, sampleRate int) []int16 {
	n := int(seconds * float64(sampleRate))
	out := make([]int16, n)
	for i := range out {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

// Normalize scales signal to the full 16-bit range. A silent signal yields
// silence.
func Normalize(signal []float64) []int16 {
	peak := 0.0
	for _, v := range signal {
		peak = math.Max(peak, math.Abs(v))
	}
	out := make([]int16, len(signal))
	if peak == 0 {
		return out
	}
	for i, v := range signal {
		out[i] = int16(v / peak * math.MaxInt16)
	}
	return out
}
