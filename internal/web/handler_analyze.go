package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/nutriscan/internal/cache"
	"github.com/vbonduro/nutriscan/internal/domain"
	"github.com/vbonduro/nutriscan/internal/imageprep"
	"github.com/vbonduro/nutriscan/internal/service"
)

// multipartOverhead is the room left for form fields and boundaries on top of
// the photo itself.
const multipartOverhead = 1 << 20

// The multipart body may run past the photo limit so that an oversized file
// is reported by its header size rather than as a truncated form.
const multipartSlack = 2

type analyzeRequest struct {
	Text     string `json:"text"`
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Save     bool   `json:"save"`
}

type analyzeResponse struct {
	Source    service.Source         `json:"source"`
	Data      *domain.AnalysisRecord `json:"data"`
	HistoryID string                 `json:"historyId,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var (
		req analyzeRequest
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = s.readMultipartAnalyze(w, r)
	} else {
		req, err = s.readJSONAnalyze(w, r)
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	res, err := s.analysis.Analyze(r.Context(), service.Input{
		Text:     req.Text,
		Image:    req.Image,
		MIMEType: req.MIMEType,
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	resp := analyzeResponse{Source: res.Source, Data: res.Record}
	if req.Save {
		// A failed save never blocks the analysis.
		if item, err := s.history.Save(r.Context(), res.Record); err != nil {
			s.logger.Warn("analysis not saved to history", "error", err)
		} else {
			resp.HistoryID = item.ID
		}
	}

	w.Header().Set("X-Analysis-Source", string(res.Source))
	writeJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Server) readMultipartAnalyze(w http.ResponseWriter, r *http.Request) (analyzeRequest, error) {
	var req analyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, multipartSlack*s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, imageprep.CheckSize(maxErr.Limit+1, s.maxUpload)
		}
		return req, domain.NewValidationError("Could not read the upload.")
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.logger.Warn("failed to remove multipart temp files", "error", err)
			}
		}()
	}

	req.Text = r.FormValue("text")
	req.Save, _ = strconv.ParseBool(r.FormValue("save"))

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, domain.NewValidationError("Could not read the upload.")
	}
	defer closeWithLog(file, "upload", s.logger)

	if err := imageprep.CheckSize(header.Size, s.maxUpload); err != nil {
		return req, err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return req, domain.NewValidationError("Could not read the upload.")
	}
	if err := imageprep.CheckSize(int64(len(data)), s.maxUpload); err != nil {
		return req, err
	}

	mimeType, ok := imageprep.DetectMIME(data)
	if !ok {
		return req, domain.NewValidationError("Unsupported image type. Please upload a JPEG, PNG, GIF or WebP photo.")
	}
	req.Image = base64.StdEncoding.EncodeToString(data)
	req.MIMEType = mimeType
	return req, nil
}

func (s *Server) readJSONAnalyze(w http.ResponseWriter, r *http.Request) (analyzeRequest, error) {
	var req analyzeRequest
	limit := int64(base64.StdEncoding.EncodedLen(int(s.maxUpload))) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, imageprep.CheckSize(s.maxUpload+1, s.maxUpload)
		}
		return req, domain.NewValidationError("Request body must be JSON.")
	}
	if req.Image != "" {
		payload := strings.TrimSpace(cache.StripDataURI(req.Image))
		size := int64(base64.StdEncoding.DecodedLen(len(payload)))
		if err := imageprep.CheckSize(size, s.maxUpload); err != nil {
			return req, err
		}
	}
	return req, nil
}
