package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/nutriscan/internal/domain"
)

// maxRecordBytes bounds a posted history record.
const maxRecordBytes = 64 << 10

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.history.List(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, items)
}

func (s *Server) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBytes)
	var rec domain.AnalysisRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, r, s.logger, domain.NewValidationError("Request body must be an analysis record."))
		return
	}
	item, err := s.history.Save(r.Context(), &rec)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, item)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
