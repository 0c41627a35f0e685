package domain

import "time"

// DietType is the vegetarian classification of a dish.
type DietType string

const (
	DietVeg    DietType = "Veg"
	DietNonVeg DietType = "Non-veg"
	DietVegan  DietType = "Vegan"
)

// Valid reports whether t is one of the known classifications.
func (t DietType) Valid() bool {
	switch t {
	case DietVeg, DietNonVeg, DietVegan:
		return true
	}
	return false
}

// NutritionFacts holds per-portion values. Calories in kcal, sodium in mg,
// everything else in grams.
type NutritionFacts struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fats     float64 `json:"fats" yaml:"fats"`
	Fiber    float64 `json:"fiber" yaml:"fiber"`
	Sodium   float64 `json:"sodium" yaml:"sodium"`
}

type DietaryInfo struct {
	Type         DietType `json:"type" yaml:"type"`
	IsGlutenFree bool     `json:"isGlutenFree" yaml:"isGlutenFree"`
	IsDairyFree  bool     `json:"isDairyFree" yaml:"isDairyFree"`
}

// AnalysisRecord is the structured result of analysing one dish.
type AnalysisRecord struct {
	DishName             string         `json:"dishName" yaml:"dishName"`
	PortionSize          string         `json:"portionSize" yaml:"portionSize"`
	Nutrition            NutritionFacts `json:"nutrition" yaml:"nutrition"`
	Ingredients          []string       `json:"ingredients" yaml:"ingredients"`
	HealthRating         int            `json:"healthRating" yaml:"healthRating"`
	HealthRatingReason   string         `json:"healthRatingReason" yaml:"healthRatingReason"`
	DietaryInfo          DietaryInfo    `json:"dietaryInfo" yaml:"dietaryInfo"`
	Allergens            []string       `json:"allergens" yaml:"allergens"`
	HealthierAlternative string         `json:"healthierAlternative" yaml:"healthierAlternative"`
}

// Clone returns a deep copy. Slices are never nil in the copy so the record
// always serializes with [] rather than null.
func (r *AnalysisRecord) Clone() *AnalysisRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Ingredients = append(make([]string, 0, len(r.Ingredients)), r.Ingredients...)
	c.Allergens = append(make([]string, 0, len(r.Allergens)), r.Allergens...)
	return &c
}

// HistoryItem is a saved analysis.
type HistoryItem struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Record    *AnalysisRecord `json:"data"`
}

// MediaArtifact points at a generated image or video in the media store.
type MediaArtifact struct {
	Key      string `json:"key"`
	MimeType string `json:"mimeType"`
}
