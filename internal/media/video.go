package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const (
	opVideoSubmit   = "gemini video submit"
	opVideoPoll     = "gemini video poll"
	opVideoDownload = "gemini video download"
)

// VideoPrompt describes the clip generated from a dish photo.
const VideoPrompt = "Cinematic slow motion shot of this delicious Indian dish, professional food photography, 4k"

type Video struct {
	Data     []byte
	MIMEType string
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type videoInstance struct {
	Prompt string     `json:"prompt"`
	Image  videoImage `json:"image"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
	SampleCount int    `json:"sampleCount"`
}

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (o *operation) videoURI() string {
	samples := o.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

// GenerateVideo animates the photo. The job is polled every PollInterval until
// it finishes, ctx is cancelled, or MaxPolls/MaxWait is reached, in which case
// a *domain.TimeoutError is returned.
func (c *Client) GenerateVideo(ctx context.Context, image []byte, mimeType string) (*Video, error) {
	if len(image) == 0 {
		return nil, domain.NewValidationError("An image is required.")
	}

	var op operation
	err := c.postJSON(ctx, opVideoSubmit, c.cfg.BaseURL+"/v1beta/models/"+c.cfg.VideoModel+":predictLongRunning", videoRequest{
		Instances: []videoInstance{{
			Prompt: VideoPrompt,
			Image:  videoImage{BytesBase64Encoded: base64.StdEncoding.EncodeToString(image), MIMEType: mimeType},
		}},
		Parameters: videoParameters{AspectRatio: "16:9", Resolution: "720p", SampleCount: 1},
	}, &op)
	if err != nil {
		return nil, err
	}
	c.logger.Info("video job submitted", "operation", op.Name)

	done, err := c.waitForOperation(ctx, &op)
	if err != nil {
		return nil, err
	}

	uri := done.videoURI()
	if uri == "" {
		return nil, &domain.RemoteError{Op: opVideoPoll, Err: ErrNoVideo}
	}
	return c.download(ctx, uri)
}

func (c *Client) waitForOperation(ctx context.Context, op *operation) (*operation, error) {
	start := time.Now()
	polls := 0
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for !op.Done {
		if (c.cfg.MaxPolls > 0 && polls >= c.cfg.MaxPolls) || time.Since(start) >= c.cfg.MaxWait {
			return nil, &domain.TimeoutError{Op: opVideoPoll, Attempts: polls, Elapsed: time.Since(start)}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		polls++
		next := &operation{}
		if err := c.getJSON(ctx, opVideoPoll, c.cfg.BaseURL+"/v1beta/"+op.Name, next); err != nil {
			return nil, err
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
		c.logger.Debug("video job polled", "operation", op.Name, "done", op.Done, "polls", polls)
	}

	if op.Error != nil {
		return nil, &domain.RemoteError{Op: opVideoPoll, Err: fmt.Errorf("operation failed with code %d: %s", op.Error.Code, op.Error.Message)}
	}
	return op, nil
}

func (c *Client) download(ctx context.Context, uri string) (*Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &domain.RemoteError{Op: opVideoDownload, Err: err}
	}
	data, err := c.fetch(ctx, opVideoDownload, req, c.maxDownload)
	if err != nil {
		return nil, err
	}
	return &Video{Data: data, MIMEType: "video/mp4"}, nil
}
