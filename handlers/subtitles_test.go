package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/clients"
)

type fakeTranscriber struct {
	entries []clients.SubtitleEntry
	err     error
}

func (f fakeTranscriber) Transcribe(requestID, mediaPath string) ([]clients.SubtitleEntry, error) {
	return f.entries, f.err
}

func TestSubtitlesSlicesAndRebasesPerSegment(t *testing.T) {
	require := require.New(t)

	h := &HighlightAPIHandlers{Transcriber: fakeTranscriber{entries: []clients.SubtitleEntry{
		{StartS: 0, EndS: 5, Text: "intro"},
		{StartS: 12, EndS: 18, Text: "middle"},
		{StartS: 50, EndS: 55, Text: "outro"},
	}}}

	body, err := json.Marshal(map[string]interface{}{
		"url": "https://example.com/source.mp4",
		"segments": []map[string]interface{}{
			{"id": "seg-1", "startS": 10, "endS": 20},
		},
	})
	require.NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/api/subtitles", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Subtitles()(w, req, nil)

	require.Equal(http.StatusOK, w.Code)
	var resp subtitlesResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	entries := resp.Subtitles["seg-1"]
	require.Len(entries, 1)
	require.Equal("middle", entries[0].Text)
	require.InDelta(2, entries[0].StartS, 0.001)
	require.InDelta(8, entries[0].EndS, 0.001)
}

func TestSubtitlesFailsOnTranscriberError(t *testing.T) {
	h := &HighlightAPIHandlers{Transcriber: fakeTranscriber{err: errTranscribeFailed}}

	body, _ := json.Marshal(map[string]interface{}{
		"url":      "https://example.com/source.mp4",
		"segments": []map[string]interface{}{{"id": "seg-1", "startS": 10, "endS": 20}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/subtitles", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Subtitles()(w, req, nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

type transcribeError struct{}

func (transcribeError) Error() string { return "transcription failed" }

var errTranscribeFailed = transcribeError{}
