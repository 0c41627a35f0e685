// Package media generates narration audio, edited dish photos and short
// videos through the Gemini REST API.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/httputil"
)

const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultSpeechModel  = "gemini-2.5-flash-preview-tts"
	DefaultVoice        = "Kore"
	DefaultImageModel   = "gemini-2.5-flash-image"
	DefaultVideoModel   = "veo-3.1-fast-generate-preview"
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 10 * time.Minute
)

// maxDownloadBytes caps a downloaded video.
const maxDownloadBytes = 100 << 20

var (
	ErrNoAudio = errors.New("no audio in response")
	ErrNoImage = errors.New("no image in response")
	ErrNoVideo = errors.New("no video in operation result")

	ErrResponseTooLarge = errors.New("response body too large")
)

type Config struct {
	APIKey       string
	BaseURL      string
	SpeechModel  string
	Voice        string
	ImageModel   string
	VideoModel   string
	PollInterval time.Duration
	// MaxPolls bounds status checks of a video job; zero means no count limit.
	MaxPolls int
	MaxWait  time.Duration
}

type Client struct {
	cfg         Config
	http        *http.Client
	decoder     AudioDecoder
	maxDownload int64
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

func WithAudioDecoder(d AudioDecoder) Option { return func(cl *Client) { cl.decoder = d } }

func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.logger = l } }

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = DefaultVideoModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 2 * time.Minute},
		decoder:     PCM16Decoder{},
		maxDownload: maxDownloadBytes,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wire types for generateContent.

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// firstInline returns the first inline part of the first candidate.
func (r *generateResponse) firstInline() (*inlineData, bool) {
	if len(r.Candidates) == 0 {
		return nil, false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData, true
		}
	}
	return nil, false
}

func inlinePart(data []byte, mime string) part {
	return part{InlineData: &inlineData{MIMEType: mime, Data: base64.StdEncoding.EncodeToString(data)}}
}

func (c *Client) generateContent(ctx context.Context, op, model string, req generateRequest) (*generateResponse, error) {
	var resp generateResponse
	if err := c.postJSON(ctx, op, c.cfg.BaseURL+"/v1beta/models/"+model+":generateContent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, op, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, op, req, out)
}

func (c *Client) getJSON(ctx context.Context, op, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	return c.do(ctx, op, req, out)
}

// do sends req with auth and decodes a JSON body into out. Transport and
// status failures become *domain.RemoteError.
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	body, err := c.fetch(ctx, op, req, 0)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, op string, req *http.Request, limit int64) ([]byte, error) {
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.RemoteError{Op: op, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "op", op, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.RemoteError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))}
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, limit)}
	}
	return body, nil
}
