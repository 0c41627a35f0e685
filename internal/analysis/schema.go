package analysis

import "github.com/vbonduro/nutriscan/internal/domain"

// Type names follow JSON Schema; adapters translate them to provider enums.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Schema is a JSON-Schema subset understood by every provider.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// RecordFields lists the top-level fields every AnalysisRecord must carry.
var RecordFields = []string{
	"dishName", "portionSize", "nutrition", "ingredients", "healthRating",
	"healthRatingReason", "dietaryInfo", "allergens", "healthierAlternative",
}

var nutritionFields = []string{"calories", "protein", "carbs", "fats", "fiber", "sodium"}

var dietaryFields = []string{"type", "isGlutenFree", "isDairyFree"}

func ptr(f float64) *float64 { return &f }

// RecordSchema describes domain.AnalysisRecord.
func RecordSchema() *Schema {
	nutrition := &Schema{Type: TypeObject, Properties: map[string]*Schema{}, Required: nutritionFields}
	for _, f := range nutritionFields {
		nutrition.Properties[f] = &Schema{Type: TypeNumber, Minimum: ptr(0)}
	}
	nutrition.Properties["calories"].Description = "kcal"
	nutrition.Properties["sodium"].Description = "mg"

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"dishName":    {Type: TypeString, Description: "Name of the identified dish"},
			"portionSize": {Type: TypeString, Description: "Estimated portion size (e.g., 1 cup, 150g)"},
			"nutrition":   nutrition,
			"ingredients": {
				Type:        TypeArray,
				Items:       &Schema{Type: TypeString},
				Description: "List of identified ingredients",
			},
			"healthRating": {
				Type:        TypeInteger,
				Description: "Rating from 1-10",
				Minimum:     ptr(1),
				Maximum:     ptr(10),
			},
			"healthRatingReason": {Type: TypeString, Description: "Brief explanation for the rating"},
			"dietaryInfo": {
				Type: TypeObject,
				Properties: map[string]*Schema{
					"type": {
						Type: TypeString,
						Enum: []string{string(domain.DietVeg), string(domain.DietNonVeg), string(domain.DietVegan)},
					},
					"isGlutenFree": {Type: TypeBoolean},
					"isDairyFree":  {Type: TypeBoolean},
				},
				Required: dietaryFields,
			},
			"allergens": {
				Type:        TypeArray,
				Items:       &Schema{Type: TypeString},
				Description: "List of potential allergens",
			},
			"healthierAlternative": {Type: TypeString, Description: "Suggestion to make it healthier"},
		},
		Required: RecordFields,
	}
}
