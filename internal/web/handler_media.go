package web

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/nutriscan/internal/cache"
	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/imageprep"
	"github.com/vbonduro/nutriscan/internal/media"
	"github.com/vbonduro/nutriscan/internal/mediastore"
)

type speechRequest struct {
	Text   string                 `json:"text"`
	Record *domain.AnalysisRecord `json:"record"`
}

type photoRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Prompt   string `json:"prompt"`
}

type artifactResponse struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

var errMediaDisabled = errors.New("media generation is not configured")

// mediaEnabled answers 503 when no media service is wired.
func (s *Server) mediaEnabled(w http.ResponseWriter) bool {
	if s.media != nil {
		return true
	}
	writeJSON(w, s.logger, http.StatusServiceUnavailable, errorBody{Error: errMediaDisabled.Error()})
	return false
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if !s.mediaEnabled(w) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBytes)
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, s.logger, domain.NewValidationError("Request body must be JSON."))
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Record == nil {
		writeError(w, r, s.logger, domain.NewValidationError("Nothing to read aloud."))
		return
	}

	audio, err := s.media.Narrate(r.Context(), req.Text, req.Record)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := media.EncodeWAV(&buf, audio); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("failed to write audio", "error", err)
	}
}

func (s *Server) handleRemix(w http.ResponseWriter, r *http.Request) {
	if !s.mediaEnabled(w) {
		return
	}
	data, mimeType, prompt, err := s.readPhoto(w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if strings.TrimSpace(prompt) == "" {
		writeError(w, r, s.logger, domain.NewValidationError("Please describe how to remix the photo."))
		return
	}
	artifact, err := s.media.Remix(r.Context(), data, mimeType, prompt)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, toArtifactResponse(artifact))
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if !s.mediaEnabled(w) {
		return
	}
	data, mimeType, _, err := s.readPhoto(w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	artifact, err := s.media.Animate(r.Context(), data, mimeType)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, toArtifactResponse(artifact))
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	if !s.mediaEnabled(w) {
		return
	}
	rc, mimeType, err := s.media.Open(r.Context(), r.PathValue("key"))
	if errors.Is(err, mediastore.ErrInvalidKey) {
		err = mediastore.ErrNotFound
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	defer closeWithLog(rc, "media", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("failed to stream media", "error", err)
	}
}

// readPhoto decodes a JSON photo body, enforcing the upload limit on the
// decoded size.
func (s *Server) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	limit := int64(base64.StdEncoding.EncodedLen(int(s.maxUpload))) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	var req photoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", "", imageprep.CheckSize(s.maxUpload+1, s.maxUpload)
		}
		return nil, "", "", domain.NewValidationError("Request body must be JSON.")
	}

	payload := strings.TrimSpace(cache.StripDataURI(req.Image))
	if payload == "" {
		return nil, "", "", domain.NewValidationError("Please add a photo.")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", domain.NewValidationError("The image could not be read.")
	}
	if err := imageprep.CheckSize(int64(len(data)), s.maxUpload); err != nil {
		return nil, "", "", err
	}
	unsupported := domain.NewValidationError("Unsupported image type. Please upload a JPEG, PNG, GIF or WebP photo.")
	mimeType, ok := imageprep.DetectMIME(data)
	if !ok {
		return nil, "", "", unsupported
	}
	if req.MIMEType != "" {
		if !imageprep.AllowedMIME(req.MIMEType) {
			return nil, "", "", unsupported
		}
		mimeType = req.MIMEType
	}
	return data, mimeType, req.Prompt, nil
}

func toArtifactResponse(a *domain.MediaArtifact) artifactResponse {
	return artifactResponse{Key: a.Key, URL: "/api/media/" + a.Key, MimeType: a.MimeType}
}
