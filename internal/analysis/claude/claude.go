// Package claude implements analysis.Generator on the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/nutriscan/internal/analysis"
	"github.com/vbonduro/nutriscan/internal/domain"
)

const opGenerate = "claude generate"

// maxTokens is well above a full record (~400 tokens) with room for verbose models.
const maxTokens = 1024

var ErrEmptyResponse = errors.New("no text in model response")

type Generator struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// New returns a Generator. model, when set, overrides the model chosen by the
// request policy. baseURL is for tests and proxies.
func New(apiKey, model, baseURL string, logger *slog.Logger) *Generator {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		logger: logger,
	}
}

// Generate implements analysis.Generator. Claude has no response-schema
// parameter so the schema is appended to the system prompt.
func (g *Generator) Generate(ctx context.Context, req *analysis.Request) (string, error) {
	system, err := systemPrompt(req)
	if err != nil {
		return "", err
	}

	model := req.Model
	if g.model != "" {
		model = g.model
	}
	temp := req.Temperature

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: toContent(req.Parts),
		}},
	})
	if err != nil {
		return "", &domain.RemoteError{Op: opGenerate, Err: err}
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", &domain.RemoteError{Op: opGenerate, Err: ErrEmptyResponse}
	}
	g.logger.Debug("claude response received", "model", model, "bytes", len(text))
	return text, nil
}

func systemPrompt(req *analysis.Request) (string, error) {
	if req.Schema == nil {
		return req.SystemInstruction, nil
	}
	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return "", fmt.Errorf("marshal response schema: %w", err)
	}
	return req.SystemInstruction + "\nRespond with JSON only, no markdown, matching this JSON Schema:\n" + string(schema), nil
}

func toContent(parts []analysis.Part) []anthropic.MessageContent {
	out := make([]anthropic.MessageContent, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
				Type:      anthropic.MessagesContentSourceTypeBase64,
				MediaType: normaliseMIME(p.MIMEType),
				Data:      base64.StdEncoding.EncodeToString(p.Data),
			}))
			continue
		}
		out = append(out, anthropic.NewTextMessageContent(p.Text))
	}
	return out
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
