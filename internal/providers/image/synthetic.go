package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
)

// Synthetic renders deterministic striped PNGs derived from the prompt.
type Synthetic struct{}

// NewSynthetic returns the offline renderer.
func NewSynthetic() *Synthetic { return &Synthetic{} }

// Name implements Generator.
func (*Synthetic) Name() string { return "synthetic" }

// Generate implements Generator.
func (s *Synthetic) Generate(ctx context.Context, req Request) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	w, h := normalizeSize(req.Width, req.Height)
	seed := deterministicSeed(req.Seed, req.Prompt, w, h)
	data, err := render(w, h, seed)
	if err != nil {
		return Asset{}, fmt.Errorf("image: encode synthetic png: %w", err)
	}
	return Asset{Data: data, Format: "image/png", Width: w, Height: h}, nil
}

func render(width, height int, seed string) ([]byte, error) {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{colorFromSeed(seed, 0)}, stdimage.Point{}, draw.Src)

	accent := colorFromSeed(seed, 1)
	stripe := max(8, height/12)
	for y := 0; y < height; y += stripe * 2 {
		band := stdimage.Rect(0, y, width, min(height, y+stripe))
		draw.Draw(img, band, &stdimage.Uniform{accent}, stdimage.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < width; x += max(8, width/32) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	seg := doubled[start : start+6]
	return color.RGBA{R: hexByte(seg[0:2]), G: hexByte(seg[2:4]), B: hexByte(seg[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
