// Package analysis turns a dish description or photo into a provider-neutral
// model request and turns the model's JSON answer back into a validated
// domain.AnalysisRecord. Provider adapters live in sub-packages.
package analysis

import (
	"context"
	"errors"
	"strings"
)

// SystemInstruction is shared by all providers.
const SystemInstruction = `You are a nutritionist specialising in Indian cuisine.
Identify the dish described or shown and estimate, for the visible or described portion:
dish name, portion size, nutrition (calories in kcal; protein, carbs, fats and fiber in grams; sodium in mg),
ingredients, a health rating from 1 to 10 with a one-sentence reason, dietary info
(Veg, Non-veg or Vegan; gluten-free; dairy-free), likely allergens and one healthier alternative.
Answer with a single JSON object that follows the response schema. Be concise.`

// ImagePrompt accompanies an inline photo.
const ImagePrompt = "Identify this dish and provide nutrition data."

// DefaultTemperature keeps answers stable across identical requests.
const DefaultTemperature float32 = 0.3

// Generator sends a request to a model and returns its raw text answer.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// Part is one piece of request content: either text or inline binary data.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// IsInline reports whether the part carries binary data.
func (p Part) IsInline() bool { return len(p.Data) > 0 }

type Request struct {
	Model             string
	SystemInstruction string
	Parts             []Part
	Schema            *Schema
	Temperature       float32
}

// HasImage reports whether the request carries an inline image.
func (r *Request) HasImage() bool {
	for _, p := range r.Parts {
		if p.IsInline() {
			return true
		}
	}
	return false
}

// ModelPolicy picks the model identifier for a request.
type ModelPolicy interface {
	Model(hasImage bool) string
}

// StaticPolicy routes image and text requests to fixed models.
type StaticPolicy struct {
	ImageModel string
	TextModel  string
}

func (p StaticPolicy) Model(hasImage bool) string {
	if hasImage {
		return p.ImageModel
	}
	return p.TextModel
}

// Content is the user input for one analysis.
type Content struct {
	Text     string
	Image    []byte
	MIMEType string
}

var ErrEmptyContent = errors.New("analysis content is empty")

// Builder assembles analysis requests.
type Builder struct {
	Policy      ModelPolicy
	Temperature float32
}

func NewBuilder(policy ModelPolicy, temperature float32) *Builder {
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	return &Builder{Policy: policy, Temperature: temperature}
}

// Build creates the request for c. An image takes precedence over text.
func (b *Builder) Build(c Content) (*Request, error) {
	var parts []Part
	switch {
	case len(c.Image) > 0:
		parts = []Part{
			{Data: c.Image, MIMEType: c.MIMEType},
			{Text: ImagePrompt},
		}
	case strings.TrimSpace(c.Text) != "":
		parts = []Part{{Text: strings.TrimSpace(c.Text)}}
	default:
		return nil, ErrEmptyContent
	}

	hasImage := len(c.Image) > 0
	return &Request{
		Model:             b.Policy.Model(hasImage),
		SystemInstruction: SystemInstruction,
		Parts:             parts,
		Schema:            RecordSchema(),
		Temperature:       b.Temperature,
	}, nil
}
