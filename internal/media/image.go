package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const opEditImage = "gemini image edit"

// Image is generated image bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// EditImage applies prompt to the photo and returns the first generated image.
func (c *Client) EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*Image, error) {
	if len(image) == 0 {
		return nil, domain.NewValidationError("An image is required.")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewValidationError("Please describe the change you want.")
	}

	resp, err := c.generateContent(ctx, opEditImage, c.cfg.ImageModel, generateRequest{
		Contents: []content{{Parts: []part{inlinePart(image, mimeType), {Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	inline, ok := resp.firstInline()
	if !ok {
		return nil, &domain.RemoteError{Op: opEditImage, Err: ErrNoImage}
	}
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, &domain.RemoteError{Op: opEditImage, Err: fmt.Errorf("decode image payload: %w", err)}
	}
	mime := inline.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Image{Data: data, MIMEType: mime}, nil
}
