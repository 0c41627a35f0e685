package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const (
	msgRemote   = "Failed to analyze food. Please try again."
	msgTimeout  = "The request took too long. Please try again."
	msgInternal = "Something went wrong. Please try again."
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error to an HTTP status and a message safe to show.
func statusFor(err error) (int, string) {
	var (
		verr *domain.ValidationError
		rerr *domain.RemoteError
		serr *domain.SchemaError
		terr *domain.TimeoutError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Msg
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.As(err, &terr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.As(err, &serr), errors.As(err, &rerr):
		return http.StatusBadGateway, msgRemote
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Info("client went away", "path", r.URL.Path)
		return
	}
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, logger, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
