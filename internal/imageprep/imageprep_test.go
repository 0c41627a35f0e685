package imageprep

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisePNG returns a base64 PNG of random pixels. Noise does not compress, so
// the payload is large for its dimensions.
func noisePNG(t *testing.T, w, h int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func solidPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodedBounds(t *testing.T, payload string) image.Rectangle {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	return image.Rect(0, 0, cfg.Width, cfg.Height)
}

func TestCompressLargeImage(t *testing.T) {
	payload := noisePNG(t, 1200, 400)
	require.Greater(t, len(payload), CompressThreshold)

	p := NewPreprocessor(nil, slog.Default())
	out, err := p.Compress(payload, DefaultMaxWidth, DefaultQuality)
	require.NoError(t, err)

	b := decodedBounds(t, out)
	assert.LessOrEqual(t, b.Dx(), 800)
	assert.Equal(t, 267, b.Dy(), "aspect ratio preserved")
	assert.Less(t, len(out), len(payload))
	assert.False(t, strings.HasPrefix(out, "data:"))
}

func TestCompressDoesNotUpscale(t *testing.T) {
	payload := solidPNG(t, 320, 240)

	p := NewPreprocessor(nil, slog.Default())
	out, err := p.Compress(payload, 800, 0.7)
	require.NoError(t, err)

	b := decodedBounds(t, out)
	assert.Equal(t, 320, b.Dx())
	assert.Equal(t, 240, b.Dy())
}

func TestCompressAcceptsDataURI(t *testing.T) {
	payload := "data:image/png;base64," + solidPNG(t, 1000, 500)

	p := NewPreprocessor(nil, slog.Default())
	out, err := p.Compress(payload, 800, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 800, decodedBounds(t, out).Dx())
}

func TestCompressInvalidPayload(t *testing.T) {
	p := NewPreprocessor(nil, slog.Default())

	_, err := p.Compress("not base64 at all!!", 800, 0.7)
	assert.Error(t, err)

	_, err = p.Compress(base64.StdEncoding.EncodeToString([]byte("plain text, not an image")), 800, 0.7)
	assert.Error(t, err)
}

func TestPrepareSmallPayloadPassesThrough(t *testing.T) {
	payload := solidPNG(t, 50, 50)

	p := NewPreprocessor(nil, slog.Default())
	out, mime := p.Prepare("data:image/png;base64,"+payload, "image/png")

	assert.Equal(t, payload, out)
	assert.Equal(t, "image/png", mime)
}

func TestPrepareLargePayloadIsCompressed(t *testing.T) {
	payload := noisePNG(t, 1200, 400)

	p := NewPreprocessor(nil, slog.Default())
	out, mime := p.Prepare(payload, "image/png")

	assert.Equal(t, "image/jpeg", mime)
	assert.Less(t, len(out), len(payload))
}

func TestPrepareFallsBackOnDecodeFailure(t *testing.T) {
	garbage := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x01, 0x02, 0x03}, 200_000))
	require.Greater(t, len(garbage), CompressThreshold)

	p := NewPreprocessor(nil, slog.Default())
	out, mime := p.Prepare(garbage, "image/jpeg")

	assert.Equal(t, garbage, out)
	assert.Equal(t, "image/jpeg", mime)
}

// hugeCanvasPNG returns a PNG signature and IHDR declaring a w x h grayscale
// canvas, followed by pad bytes. There is no pixel data.
func hugeCanvasPNG(w, h uint32, pad int) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	buf.Write(make([]byte, pad))
	return buf.Bytes()
}

func TestCompressRejectsHugeCanvas(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(hugeCanvasPNG(16000, 16000, 0))

	p := NewPreprocessor(nil, slog.Default())
	_, err := p.Compress(payload, DefaultMaxWidth, DefaultQuality)
	assert.ErrorIs(t, err, ErrTooManyPixels)
}

func TestPrepareFallsBackOnHugeCanvas(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(hugeCanvasPNG(16000, 16000, 400_000))
	require.Greater(t, len(payload), CompressThreshold)

	p := NewPreprocessor(nil, slog.Default())
	out, mime := p.Prepare(payload, "image/png")

	assert.Equal(t, payload, out)
	assert.Equal(t, "image/png", mime)
}

type failingEncoder struct{}

func (failingEncoder) Encode(io.Writer, image.Image, float64) error { return errors.New("encoder broke") }
func (failingEncoder) MimeType() string { return "image/webp" }

func TestPrepareFallsBackOnEncodeFailure(t *testing.T) {
	payload := noisePNG(t, 1200, 400)

	p := NewPreprocessor(failingEncoder{}, slog.Default())
	out, mime := p.Prepare(payload, "image/png")

	assert.Equal(t, payload, out)
	assert.Equal(t, "image/png", mime)
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxW   int
		wantW, wantH int
	}{
		{name: "landscape", w: 1600, h: 1200, maxW: 800, wantW: 800, wantH: 600},
		{name: "portrait", w: 1080, h: 1920, maxW: 800, wantW: 800, wantH: 1422},
		{name: "already small", w: 640, h: 480, maxW: 800, wantW: 640, wantH: 480},
		{name: "exact", w: 800, h: 10, maxW: 800, wantW: 800, wantH: 10},
		{name: "thin strip", w: 4000, h: 1, maxW: 800, wantW: 800, wantH: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.w, tt.h, tt.maxW)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
