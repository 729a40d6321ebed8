package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
)

type analyzeFakeProber struct{}

func (analyzeFakeProber) ProbeFile(requestID, url string, opts ...string) (video.InputVideo, error) {
	return video.InputVideo{Duration: 60}, nil
}

type analyzeFakeDownloader struct{}

func (analyzeFakeDownloader) Heatmap(requestID, videoURL string) ([]clients.HeatmapPoint, error) {
	return []clients.HeatmapPoint{
		{StartS: 0, EndS: 10, Value: 0.1},
		{StartS: 10, EndS: 20, Value: 0.9},
		{StartS: 20, EndS: 30, Value: 0.9},
		{StartS: 30, EndS: 40, Value: 0.1},
	}, nil
}
func (analyzeFakeDownloader) Comments(requestID, videoURL string, max int) ([]clients.Comment, error) {
	return nil, nil
}
func (analyzeFakeDownloader) FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error {
	return nil
}
func (analyzeFakeDownloader) FetchFull(requestID, videoURL, destPath string) error { return nil }

type analyzeFakeTranscoder struct{}

func (analyzeFakeTranscoder) AudioStats(ctx context.Context, path string, windowS float64) (string, error) {
	return "", nil
}
func (analyzeFakeTranscoder) SilenceDetect(ctx context.Context, path string, noiseDB, minDurationS float64) (string, error) {
	return "", nil
}
func (analyzeFakeTranscoder) SceneChanges(ctx context.Context, path string, threshold float64, fps, scaleWidth int, timeout time.Duration) (string, error) {
	return "", nil
}
func (analyzeFakeTranscoder) ExtractFrame(ctx context.Context, path string, atS float64, outPath string) error {
	return nil
}
func (analyzeFakeTranscoder) Transcode(ctx context.Context, in, out string, opts clients.TranscodeOptions) error {
	return nil
}

func newTestAnalyzeHandlers() *HighlightAPIHandlers {
	downloader := analyzeFakeDownloader{}
	transcoder := analyzeFakeTranscoder{}
	return &HighlightAPIHandlers{
		Prober:     analyzeFakeProber{},
		Downloader: downloader,
		Transcoder: transcoder,
		Heatmap:    signals.HeatmapProbe{Downloader: downloader},
		Audio:      signals.NewAudioProbe(transcoder),
		Scene:      signals.SceneProbe{Transcoder: transcoder},
		Comments:   signals.NewCommentProbe(downloader),
	}
}

func TestAnalyzeReturnsSegmentsAndScores(t *testing.T) {
	require := require.New(t)

	h := newTestAnalyzeHandlers()
	body, err := json.Marshal(map[string]interface{}{"url": "https://example.com/source.mp4"})
	require.NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Analyze()(w, req, nil)

	require.Equal(http.StatusOK, w.Code)
	var resp analyzeResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal("heatmap", string(resp.Detection.Primary))
	for _, seg := range resp.Segments {
		_, ok := resp.ViralityScores[seg.ID]
		require.True(ok)
	}
}

func TestAnalyzeRejectsMissingURL(t *testing.T) {
	h := newTestAnalyzeHandlers()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	h.Analyze()(w, req, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
