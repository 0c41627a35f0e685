// Package gemini implements analysis.Generator on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/nutriscan/internal/analysis"
	"github.com/vbonduro/nutriscan/internal/domain"
)

const opGenerate = "gemini generate"

var ErrEmptyResponse = errors.New("no text in model response")

// sendFunc performs the remote call for a configured model.
type sendFunc func(ctx context.Context, m *genai.GenerativeModel, parts []genai.Part) (*genai.GenerateContentResponse, error)

type Generator struct {
	client   *genai.Client
	newModel func(name string) *genai.GenerativeModel
	send     sendFunc
	logger   *slog.Logger
}

// New connects to Gemini with apiKey. endpoint overrides the API host when set.
func New(ctx context.Context, apiKey, endpoint string, logger *slog.Logger) (*Generator, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:   client,
		newModel: client.GenerativeModel,
		send: func(ctx context.Context, m *genai.GenerativeModel, parts []genai.Part) (*genai.GenerateContentResponse, error) {
			return m.GenerateContent(ctx, parts...)
		},
		logger: logger,
	}, nil
}

func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate implements analysis.Generator.
func (g *Generator) Generate(ctx context.Context, req *analysis.Request) (string, error) {
	m := configure(g.newModel(req.Model), req)

	resp, err := g.send(ctx, m, toParts(req.Parts))
	if err != nil {
		return "", &domain.RemoteError{Op: opGenerate, Err: err}
	}

	text, err := responseText(resp)
	if err != nil {
		return "", &domain.RemoteError{Op: opGenerate, Err: err}
	}
	g.logger.Debug("gemini response received", "model", req.Model, "bytes", len(text))
	return text, nil
}

// configure applies the request's instruction, schema and temperature to m.
func configure(m *genai.GenerativeModel, req *analysis.Request) *genai.GenerativeModel {
	if req.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}
	if req.Schema != nil {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = toSchema(req.Schema)
	}
	m.SetTemperature(req.Temperature)
	return m
}

func toParts(parts []analysis.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}

// toSchema converts the provider-neutral schema. Numeric bounds have no
// counterpart in genai.Schema and are carried in the description instead.
func toSchema(s *analysis.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toSchema(s.Items),
	}
	if s.Enum != nil {
		out.Format = "enum"
	}
	if s.Minimum != nil || s.Maximum != nil {
		out.Description = strings.TrimSpace(out.Description + " " + bounds(s.Minimum, s.Maximum))
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

func bounds(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("(between %g and %g)", *lo, *hi)
	case lo != nil:
		return fmt.Sprintf("(at least %g)", *lo)
	default:
		return fmt.Sprintf("(at most %g)", *hi)
	}
}

func schemaType(t string) genai.Type {
	switch t {
	case analysis.TypeObject:
		return genai.TypeObject
	case analysis.TypeString:
		return genai.TypeString
	case analysis.TypeNumber:
		return genai.TypeNumber
	case analysis.TypeInteger:
		return genai.TypeInteger
	case analysis.TypeBoolean:
		return genai.TypeBoolean
	case analysis.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
