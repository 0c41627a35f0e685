package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/media"
	"github.com/vbonduro/nutriscan/internal/mediastore"
)

// mediaGenerator is the subset of media.Client that MediaService requires.
type mediaGenerator interface {
	Speech(ctx context.Context, text string) (*media.Audio, error)
	EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*media.Image, error)
	GenerateVideo(ctx context.Context, image []byte, mimeType string) (*media.Video, error)
}

type MediaService struct {
	gen    mediaGenerator
	store  mediastore.MediaStore
	logger *slog.Logger
}

func NewMediaService(gen mediaGenerator, store mediastore.MediaStore, logger *slog.Logger) *MediaService {
	return &MediaService{gen: gen, store: store, logger: logger}
}

// NarrationScript is the text read aloud for a record.
func NarrationScript(rec *domain.AnalysisRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s. ", rec.DishName)
	if rec.PortionSize != "" {
		fmt.Fprintf(&sb, "A portion of %s has about %.0f calories, ", rec.PortionSize, rec.Nutrition.Calories)
	} else {
		fmt.Fprintf(&sb, "It has about %.0f calories, ", rec.Nutrition.Calories)
	}
	fmt.Fprintf(&sb, "%.0f grams of protein, %.0f grams of carbs and %.0f grams of fat. ",
		rec.Nutrition.Protein, rec.Nutrition.Carbs, rec.Nutrition.Fats)
	fmt.Fprintf(&sb, "Health rating %d out of 10. %s", rec.HealthRating, rec.HealthRatingReason)
	if rec.HealthierAlternative != "" {
		fmt.Fprintf(&sb, " Tip: %s", rec.HealthierAlternative)
	}
	return strings.TrimSpace(sb.String())
}

// Narrate reads text aloud, or the narration script of rec when text is empty.
func (s *MediaService) Narrate(ctx context.Context, text string, rec *domain.AnalysisRecord) (*media.Audio, error) {
	if strings.TrimSpace(text) == "" && rec != nil {
		text = NarrationScript(rec)
	}
	audio, err := s.gen.Speech(ctx, text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("narration generated", "seconds", audio.Duration())
	return audio, nil
}

// Remix edits the photo with prompt and stores the result.
func (s *MediaService) Remix(ctx context.Context, image []byte, mimeType, prompt string) (*domain.MediaArtifact, error) {
	img, err := s.gen.EditImage(ctx, image, mimeType, prompt)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, "remix", img.MIMEType, img.Data)
}

// Animate turns the photo into a short video and stores it.
func (s *MediaService) Animate(ctx context.Context, image []byte, mimeType string) (*domain.MediaArtifact, error) {
	video, err := s.gen.GenerateVideo(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, "video", video.MIMEType, video.Data)
}

// Open returns a stored artifact and its MIME type.
func (s *MediaService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.store.Get(ctx, key)
}

func (s *MediaService) save(ctx context.Context, prefix, mimeType string, data []byte) (*domain.MediaArtifact, error) {
	key, err := s.store.Save(ctx, prefix, mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", prefix, err)
	}
	s.logger.Info("media stored", "key", key, "mime_type", mimeType, "bytes", len(data))
	return &domain.MediaArtifact{Key: key, MimeType: mimeType}, nil
}
