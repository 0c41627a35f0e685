package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/service"
)

const (
	toolAnalyzeDish = "analyze_dish"
	toolListHistory = "list_history"
)

type analyzeDishParams struct {
	Description string `json:"description" description:"Free-text description of the dish"`
	Image       string `json:"image,omitempty" description:"Base64 photo of the dish, optionally a data URI"`
	MIMEType    string `json:"mimeType,omitempty" description:"MIME type of the photo"`
	Save        bool   `json:"save,omitempty" description:"Append the result to history"`
}

type listHistoryParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of items to return"`
}

// handleMCP serves a single MCP tools/call request.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(float64(s.maxUpload)*1.4)+multipartOverhead)
	var req protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, s.logger, domain.NewValidationError("Invalid tool call."))
		return
	}

	var (
		result *protocol.CallToolResult
		err    error
	)
	switch req.Name {
	case toolAnalyzeDish:
		result, err = s.toolAnalyzeDish(r, &req)
	case toolListHistory:
		result, err = s.toolListHistory(r, &req)
	default:
		writeJSON(w, s.logger, http.StatusNotFound, errorBody{Error: fmt.Sprintf("Unknown tool: %s", req.Name)})
		return
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) toolAnalyzeDish(r *http.Request, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params analyzeDishParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	res, err := s.analysis.Analyze(r.Context(), service.Input{
		Text:     params.Description,
		Image:    params.Image,
		MIMEType: params.MIMEType,
	})
	if err != nil {
		return nil, err
	}
	resp := analyzeResponse{Source: res.Source, Data: res.Record}
	if params.Save {
		if item, err := s.history.Save(r.Context(), res.Record); err != nil {
			s.logger.Warn("analysis not saved to history", "error", err)
		} else {
			resp.HistoryID = item.ID
		}
	}
	return textResult(resp)
}

func (s *Server) toolListHistory(r *http.Request, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params listHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	items, err := s.history.List(r.Context())
	if err != nil {
		return nil, err
	}
	if params.Limit > 0 && params.Limit < len(items) {
		items = items[:params.Limit]
	}
	return textResult(items)
}

// extractParams decodes the tool arguments map into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	raw, err := json.Marshal(req.Arguments)
	if err != nil {
		return domain.NewValidationError("Invalid tool arguments.")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return domain.NewValidationError("Invalid tool arguments.")
	}
	return nil
}

func textResult(v any) (*protocol.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(raw),
			},
		},
	}, nil
}
