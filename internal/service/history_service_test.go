package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutriscan/internal/db"
	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/store"
)

func newTestHistoryService(t *testing.T) *HistoryService {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return NewHistoryService(store.NewHistoryStore(d, 0, slog.Default()), slog.Default())
}

func TestHistoryServiceRoundTrip(t *testing.T) {
	svc := newTestHistoryService(t)
	ctx := context.Background()

	item, err := svc.Save(ctx, &domain.AnalysisRecord{DishName: "Poha", HealthRating: 7, DietaryInfo: domain.DietaryInfo{Type: domain.DietVegan}})
	require.NoError(t, err)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, "Poha", items[0].Record.DishName)

	require.NoError(t, svc.Delete(ctx, item.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, item.ID), domain.ErrNotFound))

	_, err = svc.Save(ctx, &domain.AnalysisRecord{DishName: "Upma"})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))
	items, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryServiceValidation(t *testing.T) {
	svc := newTestHistoryService(t)
	var verr *domain.ValidationError

	_, err := svc.Save(context.Background(), nil)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Save(context.Background(), &domain.AnalysisRecord{})
	assert.True(t, errors.As(err, &verr))

	err = svc.Delete(context.Background(), "")
	assert.True(t, errors.As(err, &verr))
}
