package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const validJSON = `{
  "dishName": "Paneer Tikka",
  "portionSize": "6 pieces",
  "nutrition": {"calories": 320, "protein": 18, "carbs": 8, "fats": 24, "fiber": 2, "sodium": 540},
  "ingredients": ["paneer", "yogurt", "spices"],
  "healthRating": 6,
  "healthRatingReason": "High protein but rich in fat.",
  "dietaryInfo": {"type": "Veg", "isGlutenFree": true, "isDairyFree": false},
  "allergens": ["dairy"],
  "healthierAlternative": "Use low-fat paneer."
}`

func TestParseRecordValid(t *testing.T) {
	rec, err := ParseRecord(validJSON)
	require.NoError(t, err)

	assert.Equal(t, "Paneer Tikka", rec.DishName)
	assert.Equal(t, 320.0, rec.Nutrition.Calories)
	assert.Equal(t, 6, rec.HealthRating)
	assert.Equal(t, domain.DietVeg, rec.DietaryInfo.Type)
	assert.True(t, rec.DietaryInfo.IsGlutenFree)
	assert.Equal(t, []string{"dairy"}, rec.Allergens)
}

func TestParseRecordCodeFence(t *testing.T) {
	rec, err := ParseRecord("```json\n" + validJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Paneer Tikka", rec.DishName)
}

func TestParseRecordEmptyListsAreNotNil(t *testing.T) {
	raw := strings.Replace(validJSON, `["dairy"]`, `[]`, 1)
	rec, err := ParseRecord(raw)
	require.NoError(t, err)
	assert.NotNil(t, rec.Allergens)
	assert.Empty(t, rec.Allergens)
}

func TestParseRecordRejects(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "empty", raw: "   ", field: ""},
		{name: "not json", raw: "Sorry, I can't help with that.", field: ""},
		{name: "missing dish name", raw: strings.Replace(validJSON, `"dishName": "Paneer Tikka",`, "", 1), field: "dishName"},
		{name: "blank dish name", raw: strings.Replace(validJSON, `"Paneer Tikka"`, `"  "`, 1), field: "dishName"},
		{name: "missing sodium", raw: strings.Replace(validJSON, `, "sodium": 540`, "", 1), field: "nutrition.sodium"},
		{name: "negative calories", raw: strings.Replace(validJSON, `"calories": 320`, `"calories": -5`, 1), field: "nutrition.calories"},
		{name: "rating too high", raw: strings.Replace(validJSON, `"healthRating": 6`, `"healthRating": 11`, 1), field: "healthRating"},
		{name: "rating zero", raw: strings.Replace(validJSON, `"healthRating": 6`, `"healthRating": 0`, 1), field: "healthRating"},
		{name: "rating fractional", raw: strings.Replace(validJSON, `"healthRating": 6`, `"healthRating": 6.5`, 1), field: "healthRating"},
		{name: "rating as string", raw: strings.Replace(validJSON, `"healthRating": 6`, `"healthRating": "6"`, 1), field: ""},
		{name: "unknown diet", raw: strings.Replace(validJSON, `"type": "Veg"`, `"type": "Pescatarian"`, 1), field: "dietaryInfo.type"},
		{name: "missing dairy flag", raw: strings.Replace(validJSON, `, "isDairyFree": false`, "", 1), field: "dietaryInfo.isDairyFree"},
		{name: "missing allergens", raw: strings.Replace(validJSON, `"allergens": ["dairy"],`, "", 1), field: "allergens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord(tt.raw)
			assert.Nil(t, rec)
			var serr *domain.SchemaError
			require.True(t, errors.As(err, &serr), "got %v", err)
			assert.Equal(t, tt.field, serr.Field)
		})
	}
}
