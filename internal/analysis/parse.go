package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/vbonduro/nutriscan/internal/domain"
)

// wireRecord mirrors domain.AnalysisRecord with pointers so missing fields can
// be told apart from zero values.
type wireRecord struct {
	DishName             *string        `json:"dishName"`
	PortionSize          *string        `json:"portionSize"`
	Nutrition            *wireNutrition `json:"nutrition"`
	Ingredients          *[]string      `json:"ingredients"`
	HealthRating         *float64       `json:"healthRating"`
	HealthRatingReason   *string        `json:"healthRatingReason"`
	DietaryInfo          *wireDietary   `json:"dietaryInfo"`
	Allergens            *[]string      `json:"allergens"`
	HealthierAlternative *string        `json:"healthierAlternative"`
}

type wireNutrition struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fats     *float64 `json:"fats"`
	Fiber    *float64 `json:"fiber"`
	Sodium   *float64 `json:"sodium"`
}

type wireDietary struct {
	Type         *string `json:"type"`
	IsGlutenFree *bool   `json:"isGlutenFree"`
	IsDairyFree  *bool   `json:"isDairyFree"`
}

func missing(field string) error {
	return &domain.SchemaError{Field: field, Reason: "is missing"}
}

func invalid(field, reason string) error {
	return &domain.SchemaError{Field: field, Reason: reason}
}

// stripFences removes a surrounding markdown code fence, which some models add
// even when asked for bare JSON.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseRecord decodes and validates a model answer. Any deviation from the
// record schema yields a *domain.SchemaError.
func ParseRecord(raw string) (*domain.AnalysisRecord, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, invalid("", "empty response")
	}

	var w wireRecord
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&w); err != nil {
		return nil, &domain.SchemaError{Reason: "invalid JSON", Err: err}
	}

	switch {
	case w.DishName == nil:
		return nil, missing("dishName")
	case w.PortionSize == nil:
		return nil, missing("portionSize")
	case w.Nutrition == nil:
		return nil, missing("nutrition")
	case w.Ingredients == nil:
		return nil, missing("ingredients")
	case w.HealthRating == nil:
		return nil, missing("healthRating")
	case w.HealthRatingReason == nil:
		return nil, missing("healthRatingReason")
	case w.DietaryInfo == nil:
		return nil, missing("dietaryInfo")
	case w.Allergens == nil:
		return nil, missing("allergens")
	case w.HealthierAlternative == nil:
		return nil, missing("healthierAlternative")
	}

	if strings.TrimSpace(*w.DishName) == "" {
		return nil, invalid("dishName", "is empty")
	}

	nutrition, err := parseNutrition(w.Nutrition)
	if err != nil {
		return nil, err
	}

	rating := *w.HealthRating
	if rating != math.Trunc(rating) || rating < 1 || rating > 10 {
		return nil, invalid("healthRating", "must be an integer from 1 to 10")
	}

	dietary, err := parseDietary(w.DietaryInfo)
	if err != nil {
		return nil, err
	}

	rec := &domain.AnalysisRecord{
		DishName:             strings.TrimSpace(*w.DishName),
		PortionSize:          *w.PortionSize,
		Nutrition:            nutrition,
		Ingredients:          *w.Ingredients,
		HealthRating:         int(rating),
		HealthRatingReason:   *w.HealthRatingReason,
		DietaryInfo:          dietary,
		Allergens:            *w.Allergens,
		HealthierAlternative: *w.HealthierAlternative,
	}
	return rec.Clone(), nil
}

func parseNutrition(n *wireNutrition) (domain.NutritionFacts, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"calories", n.Calories},
		{"protein", n.Protein},
		{"carbs", n.Carbs},
		{"fats", n.Fats},
		{"fiber", n.Fiber},
		{"sodium", n.Sodium},
	}
	for _, f := range fields {
		if f.v == nil {
			return domain.NutritionFacts{}, missing("nutrition." + f.name)
		}
		if *f.v < 0 {
			return domain.NutritionFacts{}, invalid("nutrition."+f.name, "must not be negative")
		}
	}
	return domain.NutritionFacts{
		Calories: *n.Calories,
		Protein:  *n.Protein,
		Carbs:    *n.Carbs,
		Fats:     *n.Fats,
		Fiber:    *n.Fiber,
		Sodium:   *n.Sodium,
	}, nil
}

func parseDietary(d *wireDietary) (domain.DietaryInfo, error) {
	switch {
	case d.Type == nil:
		return domain.DietaryInfo{}, missing("dietaryInfo.type")
	case d.IsGlutenFree == nil:
		return domain.DietaryInfo{}, missing("dietaryInfo.isGlutenFree")
	case d.IsDairyFree == nil:
		return domain.DietaryInfo{}, missing("dietaryInfo.isDairyFree")
	}
	t := domain.DietType(*d.Type)
	if !t.Valid() {
		return domain.DietaryInfo{}, invalid("dietaryInfo.type", "must be Veg, Non-veg or Vegan")
	}
	return domain.DietaryInfo{
		Type:         t,
		IsGlutenFree: *d.IsGlutenFree,
		IsDairyFree:  *d.IsDairyFree,
	}, nil
}
