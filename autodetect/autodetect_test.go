package autodetect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
)

type fakeProber struct {
	iv  video.InputVideo
	err error
}

func (f fakeProber) ProbeFile(requestID, url string, opts ...string) (video.InputVideo, error) {
	return f.iv, f.err
}

type fakeDownloader struct {
	heatmap  []clients.HeatmapPoint
	comments []clients.Comment
}

func (f fakeDownloader) Heatmap(requestID, videoURL string) ([]clients.HeatmapPoint, error) {
	return f.heatmap, nil
}
func (f fakeDownloader) Comments(requestID, videoURL string, max int) ([]clients.Comment, error) {
	return f.comments, nil
}
func (f fakeDownloader) FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error {
	return nil
}
func (f fakeDownloader) FetchFull(requestID, videoURL, destPath string) error { return nil }

type fakeTranscoder struct{}

func (fakeTranscoder) AudioStats(ctx context.Context, path string, windowS float64) (string, error) {
	return "", nil
}
func (fakeTranscoder) SilenceDetect(ctx context.Context, path string, noiseDB, minDurationS float64) (string, error) {
	return "", nil
}
func (fakeTranscoder) SceneChanges(ctx context.Context, path string, threshold float64, fps, scaleWidth int, timeout time.Duration) (string, error) {
	return "", nil
}
func (fakeTranscoder) ExtractFrame(ctx context.Context, path string, atS float64, outPath string) error {
	return nil
}
func (fakeTranscoder) Transcode(ctx context.Context, in, out string, opts clients.TranscodeOptions) error {
	return nil
}

func TestRunProducesSegmentsFromHeatmap(t *testing.T) {
	require := require.New(t)

	probes := Probes{
		Prober: fakeProber{iv: video.InputVideo{Duration: 120}},
		Heatmap: signals.HeatmapProbe{Downloader: fakeDownloader{
			heatmap: []clients.HeatmapPoint{
				{StartS: 0, EndS: 10, Value: 0.1},
				{StartS: 10, EndS: 20, Value: 0.9},
				{StartS: 20, EndS: 30, Value: 0.9},
				{StartS: 30, EndS: 40, Value: 0.1},
			},
		}},
		Audio:      signals.NewAudioProbe(fakeTranscoder{}),
		Scene:      signals.SceneProbe{Transcoder: fakeTranscoder{}},
		Comments:   signals.NewCommentProbe(fakeDownloader{}),
		Transcoder: fakeTranscoder{},
	}

	result, err := probes.Run("req-1", "https://example.com/video.mp4", detect.DefaultOptions(), combiner.DefaultOptions())
	require.NoError(err)
	require.Equal(signals.MethodHeatmap, result.Detection.Primary)
	for _, seg := range result.Segments {
		_, ok := result.ViralityScores[seg.ID]
		require.True(ok, "every segment should have a virality score")
	}
}

func TestRunSurfacesProberError(t *testing.T) {
	require := require.New(t)

	probes := Probes{Prober: fakeProber{err: errProbe}}
	_, err := probes.Run("req-1", "https://example.com/video.mp4", detect.DefaultOptions(), combiner.DefaultOptions())
	require.ErrorIs(err, errProbe)
}

func TestOnProbeEmptyFiresForEmptySources(t *testing.T) {
	require := require.New(t)

	var gotEmpty []signals.Method
	OnProbeEmpty(func(m signals.Method) { gotEmpty = append(gotEmpty, m) })
	defer OnProbeEmpty(func(signals.Method) {})

	probes := Probes{
		Prober:     fakeProber{iv: video.InputVideo{Duration: 60}},
		Heatmap:    signals.HeatmapProbe{Downloader: fakeDownloader{}},
		Audio:      signals.NewAudioProbe(fakeTranscoder{}),
		Scene:      signals.SceneProbe{Transcoder: fakeTranscoder{}},
		Comments:   signals.NewCommentProbe(fakeDownloader{}),
		Transcoder: fakeTranscoder{},
	}

	_, err := probes.Run("req-1", "https://example.com/video.mp4", detect.DefaultOptions(), combiner.DefaultOptions())
	require.NoError(err)
	require.Contains(gotEmpty, signals.MethodHeatmap)
	require.Contains(gotEmpty, signals.MethodComments)
}

// countingTranscoder tracks how many times the audio/scene probe paths
// actually invoke the transcoder, so tests can assert the fallback
// skip/run decision in Probes.Run without relying on timing.
type countingTranscoder struct {
	audioCalls int32
	sceneCalls int32
}

func (c *countingTranscoder) AudioStats(ctx context.Context, path string, windowS float64) (string, error) {
	atomic.AddInt32(&c.audioCalls, 1)
	return "", nil
}
func (c *countingTranscoder) SilenceDetect(ctx context.Context, path string, noiseDB, minDurationS float64) (string, error) {
	return "", nil
}
func (c *countingTranscoder) SceneChanges(ctx context.Context, path string, threshold float64, fps, scaleWidth int, timeout time.Duration) (string, error) {
	atomic.AddInt32(&c.sceneCalls, 1)
	return "", nil
}
func (c *countingTranscoder) ExtractFrame(ctx context.Context, path string, atS float64, outPath string) error {
	return nil
}
func (c *countingTranscoder) Transcode(ctx context.Context, in, out string, opts clients.TranscodeOptions) error {
	return nil
}

// strongCommentDownloader returns a heatmap (optional) and enough
// distinct-bucketed comment timestamps to make IsStrong() true.
type strongCommentDownloader struct {
	heatmap []clients.HeatmapPoint
}

func (f strongCommentDownloader) Heatmap(requestID, videoURL string) ([]clients.HeatmapPoint, error) {
	return f.heatmap, nil
}
func (f strongCommentDownloader) Comments(requestID, videoURL string, max int) ([]clients.Comment, error) {
	return []clients.Comment{
		{Text: "funny at 1:00"},
		{Text: "lol 1:10"},
		{Text: "best part 1:20"},
		{Text: "haha 1:30"},
		{Text: "again at 1:40"},
	}, nil
}
func (f strongCommentDownloader) FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error {
	return nil
}
func (f strongCommentDownloader) FetchFull(requestID, videoURL, destPath string) error { return nil }

func TestRunSkipsFallbackProbesWhenHeatmapPresentAndCommentsStrong(t *testing.T) {
	require := require.New(t)

	transcoder := &countingTranscoder{}
	downloader := strongCommentDownloader{heatmap: []clients.HeatmapPoint{
		{StartS: 0, EndS: 10, Value: 0.1},
		{StartS: 10, EndS: 20, Value: 0.9},
	}}

	probes := Probes{
		Prober:     fakeProber{iv: video.InputVideo{Duration: 120}},
		Heatmap:    signals.HeatmapProbe{Downloader: downloader},
		Audio:      signals.NewAudioProbe(transcoder),
		Scene:      signals.SceneProbe{Transcoder: transcoder},
		Comments:   signals.NewCommentProbe(downloader),
		Transcoder: transcoder,
	}

	result, err := probes.Run("req-1", "https://example.com/video.mp4", detect.DefaultOptions(), combiner.DefaultOptions())
	require.NoError(err)
	require.Equal(signals.MethodHeatmap, result.Detection.Primary)
	require.Equal(int32(0), atomic.LoadInt32(&transcoder.audioCalls), "audio probe should be skipped when heatmap is present and comments are strong")
	require.Equal(int32(0), atomic.LoadInt32(&transcoder.sceneCalls), "scene probe should be skipped when heatmap is present and comments are strong")
}

func TestRunFallsBackToAudioSceneWhenHeatmapAbsent(t *testing.T) {
	require := require.New(t)

	transcoder := &countingTranscoder{}
	downloader := fakeDownloader{} // no heatmap, no comments

	probes := Probes{
		Prober:     fakeProber{iv: video.InputVideo{Duration: 120}},
		Heatmap:    signals.HeatmapProbe{Downloader: downloader},
		Audio:      signals.NewAudioProbe(transcoder),
		Scene:      signals.SceneProbe{Transcoder: transcoder},
		Comments:   signals.NewCommentProbe(downloader),
		Transcoder: transcoder,
	}

	_, err := probes.Run("req-1", "https://example.com/video.mp4", detect.DefaultOptions(), combiner.DefaultOptions())
	require.NoError(err)
	require.Equal(int32(1), atomic.LoadInt32(&transcoder.audioCalls), "audio probe should run in the fallback branch")
	require.Equal(int32(1), atomic.LoadInt32(&transcoder.sceneCalls), "scene probe should run in the fallback branch")
}

type probeError struct{ msg string }

func (e *probeError) Error() string { return e.msg }

var errProbe = &probeError{msg: "probe failed"}
