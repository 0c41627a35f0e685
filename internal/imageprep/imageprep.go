// Package imageprep shrinks oversized photos before they are sent to the
// analysis model and validates uploads.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/nutriscan/internal/cache"
)

const (
	// CompressThreshold is the base64 length above which Prepare re-encodes a
	// payload (roughly 350 KB of image data).
	CompressThreshold = 500_000
	DefaultMaxWidth   = 800
	DefaultQuality    = 0.7
	// MaxPixels bounds the canvas Compress is willing to decode.
	MaxPixels = 40_000_000
)

// ErrTooManyPixels is returned by Compress for images whose declared size
// exceeds MaxPixels.
var ErrTooManyPixels = errors.New("image dimensions too large")

// Encoder writes img in a lossy format. quality is in (0, 1].
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality float64) error
	MimeType() string
}

// JPEGEncoder is the default Encoder.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	q = min(max(q, 1), 100)
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

func (JPEGEncoder) MimeType() string { return "image/jpeg" }

type Preprocessor struct {
	encoder   Encoder
	maxWidth  int
	quality   float64
	threshold int
	logger    *slog.Logger
}

func NewPreprocessor(encoder Encoder, logger *slog.Logger) *Preprocessor {
	if encoder == nil {
		encoder = JPEGEncoder{}
	}
	return &Preprocessor{
		encoder:   encoder,
		maxWidth:  DefaultMaxWidth,
		quality:   DefaultQuality,
		threshold: CompressThreshold,
		logger:    logger,
	}
}

// Prepare returns the payload to send to the model along with its MIME type.
// Payloads at or under the threshold pass through with any data-URI header
// removed. Larger ones are compressed; if that fails the original is used.
func (p *Preprocessor) Prepare(payload, mimeType string) (string, string) {
	clean := cache.StripDataURI(payload)
	if len(clean) <= p.threshold {
		return clean, mimeType
	}

	out, err := p.Compress(clean, p.maxWidth, p.quality)
	if err != nil {
		p.logger.Warn("image compression failed, using original", "bytes", len(clean), "error", err)
		return clean, mimeType
	}
	p.logger.Debug("image compressed", "before", len(clean), "after", len(out))
	return out, p.encoder.MimeType()
}

// Compress decodes a base64 image, scales it down to at most maxWidth pixels
// wide keeping the aspect ratio, and re-encodes it at quality. The result is
// plain base64 without a data-URI header. Images already narrower than
// maxWidth are re-encoded at their own size.
func (p *Preprocessor) Compress(payload string, maxWidth int, quality float64) (string, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	raw, err := base64.StdEncoding.DecodeString(cache.StripDataURI(payload))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	w, h := ScaledSize(src.Bounds().Dx(), src.Bounds().Dy(), maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, dst, quality); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ScaledSize caps width at maxWidth and scales height by the same factor.
func ScaledSize(width, height, maxWidth int) (int, int) {
	if width <= maxWidth || width == 0 {
		return width, height
	}
	h := int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
	return maxWidth, max(h, 1)
}
