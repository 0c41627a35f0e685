package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutriscan/internal/db"
	"github.com/vbonduro/nutriscan/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return d
}

func record(name string) *domain.AnalysisRecord {
	return &domain.AnalysisRecord{
		DishName:     name,
		PortionSize:  "1 plate",
		Nutrition:    domain.NutritionFacts{Calories: 300, Protein: 10},
		Ingredients:  []string{"rice"},
		HealthRating: 7,
		DietaryInfo:  domain.DietaryInfo{Type: domain.DietVeg},
		Allergens:    []string{},
	}
}

// steppingClock advances one second per call so items get distinct timestamps.
func steppingClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestHistorySaveAndList(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), 0, nil)
	s.now = steppingClock()
	ctx := context.Background()

	first, err := s.Save(ctx, record("Idli"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.Save(ctx, record("Dosa"))
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, "Dosa", items[0].Record.DishName)
	assert.Equal(t, first.ID, items[1].ID)
	assert.True(t, items[0].Timestamp.After(items[1].Timestamp))
	assert.True(t, first.Timestamp.Equal(items[1].Timestamp))
	assert.Equal(t, []string{"rice"}, items[1].Record.Ingredients)
}

func TestHistoryCapsAtLimit(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), DefaultHistoryLimit, nil)
	s.now = steppingClock()
	ctx := context.Background()

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := s.Save(ctx, record(fmt.Sprintf("dish-%02d", i)))
		require.NoError(t, err)
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, DefaultHistoryLimit)
	assert.Equal(t, "dish-54", items[0].Record.DishName)
	assert.Equal(t, "dish-05", items[len(items)-1].Record.DishName)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&n))
	assert.Equal(t, DefaultHistoryLimit, n)
}

func TestHistorySameTimestampKeepsInsertOrder(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), 0, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, err := s.Save(ctx, record("a"))
	require.NoError(t, err)
	_, err = s.Save(ctx, record("b"))
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Record.DishName)
}

func TestHistoryCorruptRowReadsEmpty(t *testing.T) {
	d := openTestDB(t)
	s := NewHistoryStore(d, 0, nil)
	ctx := context.Background()

	_, err := s.Save(ctx, record("Idli"))
	require.NoError(t, err)
	_, err = d.Exec(`INSERT INTO history (id, created_at, record) VALUES ('bad', '2020-01-01T00:00:00.000000000Z', '{not json')`)
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestHistoryDelete(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), 0, nil)
	ctx := context.Background()

	item, err := s.Save(ctx, record("Idli"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, item.ID))
	assert.ErrorIs(t, s.Delete(ctx, item.ID), ErrNotFound)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryClear(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), 0, nil)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Save(ctx, record(name))
		require.NoError(t, err)
	}
	require.NoError(t, s.Clear(ctx))

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistorySaveCopiesRecord(t *testing.T) {
	s := NewHistoryStore(openTestDB(t), 0, nil)
	ctx := context.Background()

	rec := record("Idli")
	item, err := s.Save(ctx, rec)
	require.NoError(t, err)

	rec.DishName = "changed"
	assert.Equal(t, "Idli", item.Record.DishName)
}
