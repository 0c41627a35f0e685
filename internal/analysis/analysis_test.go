package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policy = StaticPolicy{ImageModel: "vision-model", TextModel: "text-model"}

func TestBuildTextRequest(t *testing.T) {
	b := NewBuilder(policy, 0.3)

	req, err := b.Build(Content{Text: "  Butter Chicken  "})
	require.NoError(t, err)

	assert.Equal(t, "text-model", req.Model)
	assert.Equal(t, SystemInstruction, req.SystemInstruction)
	assert.InDelta(t, 0.3, req.Temperature, 0.0001)
	require.Len(t, req.Parts, 1)
	assert.Equal(t, "Butter Chicken", req.Parts[0].Text)
	assert.False(t, req.HasImage())
	require.NotNil(t, req.Schema)
	assert.ElementsMatch(t, RecordFields, req.Schema.Required)
}

func TestBuildImageRequest(t *testing.T) {
	b := NewBuilder(policy, 0.3)
	img := []byte{0xFF, 0xD8, 0xFF}

	req, err := b.Build(Content{Text: "ignored", Image: img, MIMEType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "vision-model", req.Model)
	assert.True(t, req.HasImage())
	require.Len(t, req.Parts, 2)
	assert.Equal(t, img, req.Parts[0].Data)
	assert.Equal(t, "image/jpeg", req.Parts[0].MIMEType)
	assert.Equal(t, ImagePrompt, req.Parts[1].Text)
}

func TestBuildEmptyContent(t *testing.T) {
	b := NewBuilder(policy, 0.3)

	_, err := b.Build(Content{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestNewBuilderNegativeTemperatureUsesDefault(t *testing.T) {
	b := NewBuilder(policy, -1)
	assert.Equal(t, DefaultTemperature, b.Temperature)
}

func TestRecordSchemaShape(t *testing.T) {
	s := RecordSchema()

	assert.Equal(t, TypeObject, s.Type)
	for _, f := range RecordFields {
		assert.Contains(t, s.Properties, f)
	}
	assert.Equal(t, TypeInteger, s.Properties["healthRating"].Type)
	assert.Equal(t, []string{"Veg", "Non-veg", "Vegan"}, s.Properties["dietaryInfo"].Properties["type"].Enum)
	assert.Equal(t, TypeString, s.Properties["allergens"].Items.Type)
	assert.Len(t, s.Properties["nutrition"].Required, 6)
}
