// Package mediastore keeps generated images, videos and audio so clients can
// fetch them by key.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vbonduro/nutriscan/internal/domain"
)

var (
	ErrNotFound   = fmt.Errorf("media %w", domain.ErrNotFound)
	ErrInvalidKey = errors.New("invalid media key")
)

type MediaStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
