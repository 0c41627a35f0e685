package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vbonduro/nutriscan/internal/analysis"
	"github.com/vbonduro/nutriscan/internal/cache"
	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/imageprep"
)

// DefaultAnalysisTimeout bounds one shared remote analysis.
const DefaultAnalysisTimeout = 2 * time.Minute

// Source tells where an analysis result came from.
type Source string

const (
	SourceLookup Source = "lookup"
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// dishLookup is the subset of lookup.Table that AnalysisService requires.
type dishLookup interface {
	Lookup(text string) (*domain.AnalysisRecord, bool)
}

// resultCache is the subset of cache.ResultCache that AnalysisService requires.
type resultCache interface {
	Get(key string) (*domain.AnalysisRecord, bool)
	Put(key string, record *domain.AnalysisRecord)
}

// imagePreparer is the subset of imageprep.Preprocessor that AnalysisService requires.
type imagePreparer interface {
	Prepare(payload, mimeType string) (string, string)
}

// Input is one analysis request. Image is base64, optionally with a data URI
// header. When both are set the image is analysed and the text ignored.
type Input struct {
	Text     string
	Image    string
	MIMEType string
}

type Result struct {
	Record *domain.AnalysisRecord
	Source Source
}

type AnalysisService struct {
	lookup    dishLookup
	cache     resultCache
	prep      imagePreparer
	builder   *analysis.Builder
	generator analysis.Generator
	flight    singleflight.Group
	timeout   time.Duration
	logger    *slog.Logger
}

func NewAnalysisService(
	lookup dishLookup,
	cache resultCache,
	prep imagePreparer,
	builder *analysis.Builder,
	generator analysis.Generator,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		lookup:    lookup,
		cache:     cache,
		prep:      prep,
		builder:   builder,
		generator: generator,
		timeout:   DefaultAnalysisTimeout,
		logger:    logger,
	}
}

var dataURIMime = regexp.MustCompile(`^data:([^;,]+)[;,]`)

// Analyze returns the nutrition analysis for in. Text-only inputs that match
// the static table never reach the cache or the network. Concurrent calls for
// the same fingerprint share one remote call.
func (s *AnalysisService) Analyze(ctx context.Context, in Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	image := strings.TrimSpace(in.Image)
	if text == "" && image == "" {
		return nil, domain.NewValidationError("Please describe a dish or add a photo.")
	}

	mime := in.MIMEType
	if image != "" {
		var err error
		if mime, err = resolveMIME(image, mime); err != nil {
			return nil, err
		}
	} else if rec, ok := s.lookup.Lookup(text); ok {
		s.logger.Info("analysis served from lookup table", "dish", rec.DishName)
		return &Result{Record: rec, Source: SourceLookup}, nil
	}

	key := cache.Fingerprint(text, image)
	if rec, ok := s.cache.Get(key); ok {
		s.logger.Info("analysis served from cache", "dish", rec.DishName)
		return &Result{Record: rec, Source: SourceCache}, nil
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		// The shared call outlives any single caller's cancellation.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.analyzeRemote(callCtx, key, text, image, mime)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec := res.Val.(*domain.AnalysisRecord)
		return &Result{Record: rec.Clone(), Source: SourceRemote}, nil
	}
}

func (s *AnalysisService) analyzeRemote(ctx context.Context, key, text, image, mime string) (*domain.AnalysisRecord, error) {
	content := analysis.Content{Text: text}
	if image != "" {
		payload, prepared := s.prep.Prepare(image, mime)
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, domain.NewValidationError("The image could not be read.")
		}
		content = analysis.Content{Image: raw, MIMEType: prepared}
	}

	req, err := s.builder.Build(content)
	if err != nil {
		return nil, domain.NewValidationError("Please describe a dish or add a photo.")
	}

	start := time.Now()
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		var remote *domain.RemoteError
		if !errors.As(err, &remote) {
			err = &domain.RemoteError{Op: "analyze", Err: err}
		}
		s.logger.Error("remote analysis failed", "kind", "remote", "model", req.Model, "error", err)
		return nil, err
	}

	rec, err := analysis.ParseRecord(raw)
	if err != nil {
		var schema *domain.SchemaError
		if errors.As(err, &schema) {
			s.logger.Error("remote analysis rejected", "kind", "schema", "field", schema.Field, "error", err)
		}
		return nil, err
	}

	s.cache.Put(key, rec)
	s.logger.Info("analysis completed",
		"dish", rec.DishName, "model", req.Model, "image", req.HasImage(),
		"duration_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// resolveMIME picks the image MIME type: explicit, then data URI header, then
// sniffed from the bytes. Declared types must be accepted image formats and
// the payload itself must sniff as one.
func resolveMIME(image, mime string) (string, error) {
	unsupported := domain.NewValidationError("Unsupported image type. Please upload a JPEG, PNG, GIF or WebP photo.")

	head := cache.StripDataURI(image)
	if len(head) > 64 {
		head = head[:64]
	}
	raw, err := base64.StdEncoding.DecodeString(head[:len(head)/4*4])
	if err != nil {
		return "", unsupported
	}
	sniffed, ok := imageprep.DetectMIME(raw)
	if !ok {
		return "", unsupported
	}

	declared := mime
	if declared == "" {
		if m := dataURIMime.FindStringSubmatch(image); m != nil {
			declared = m[1]
		}
	}
	if declared == "" {
		return sniffed, nil
	}
	if !imageprep.AllowedMIME(declared) {
		return "", unsupported
	}
	return declared, nil
}
