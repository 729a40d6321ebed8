package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/pipeline"
	"github.com/livepeer/catalyst-api/progress"
)

func TestCutStartsAJobAndReturnsItsID(t *testing.T) {
	require := require.New(t)

	hub := progress.NewHub()
	h := &HighlightAPIHandlers{Hub: hub, Coordinator: pipeline.NewCoordinator(hub, t.TempDir())}

	body, err := json.Marshal(map[string]interface{}{
		"url":      "https://example.com/source.mp4",
		"segments": []map[string]interface{}{{"id": "a", "startS": 1, "endS": 2}},
		"cropMode": "center",
	})
	require.NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/api/cut", bytes.NewReader(body))
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()

	h.Cut()(w, req, nil)

	require.Equal(http.StatusOK, w.Code)
	var resp cutResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(resp.JobID)

	_, ok := hub.Job(resp.JobID)
	require.True(ok)
}

func TestCutRejectsInvalidBody(t *testing.T) {
	require := require.New(t)

	h := &HighlightAPIHandlers{}
	req := httptest.NewRequest(http.MethodPost, "/api/cut", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	h.Cut()(w, req, nil)

	require.Equal(http.StatusBadRequest, w.Code)
}
