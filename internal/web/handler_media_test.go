package web_test

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type artifactBody struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

func TestSpeechReturnsWAV(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.postJSON(t, "/api/media/speech", map[string]any{"text": "Paneer Tikka"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Greater(t, len(body), 44)
	assert.Equal(t, "RIFF", string(body[0:4]))
	assert.Equal(t, "WAVE", string(body[8:12]))
}

func TestSpeechRequiresContent(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.postJSON(t, "/api/media/speech", map[string]any{"text": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemixStoresArtifact(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.postJSON(t, "/api/media/remix", map[string]any{
		"image":  base64.StdEncoding.EncodeToString(pngBytes(t)),
		"prompt": "make it spicier",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	art := decode[artifactBody](t, resp)
	assert.Equal(t, "image/png", art.MimeType)
	assert.Equal(t, "/api/media/"+art.Key, art.URL)

	resp = env.do(t, http.MethodGet, art.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(body))
}

func TestRemixRequiresPrompt(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.postJSON(t, "/api/media/remix", map[string]any{
		"image": base64.StdEncoding.EncodeToString(pngBytes(t)),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemixRejectsNonImage(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "declared pdf", body: map[string]any{
			"image":    base64.StdEncoding.EncodeToString(pngBytes(t)),
			"mimeType": "application/pdf",
			"prompt":   "make it spicier",
		}},
		{name: "pdf bytes labelled png", body: map[string]any{
			"image":    base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 a document")),
			"mimeType": "image/png",
			"prompt":   "make it spicier",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, "/api/media/remix", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestVideoStoresArtifact(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.postJSON(t, "/api/media/video", map[string]any{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t)),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	art := decode[artifactBody](t, resp)
	assert.Equal(t, "video/mp4", art.MimeType)

	resp = env.do(t, http.MethodGet, art.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVideoFailureHidesDetail(t *testing.T) {
	env := newTestEnv(t, true)
	env.media.err = errors.New("quota exhausted")

	resp := env.postJSON(t, "/api/media/video", map[string]any{
		"image": base64.StdEncoding.EncodeToString(pngBytes(t)),
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, decode[errorBody](t, resp).Error, "quota")
}

func TestGetMediaUnknownKey(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.do(t, http.MethodGet, "/api/media/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMediaDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.postJSON(t, "/api/media/speech", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
