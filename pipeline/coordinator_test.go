package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/cache"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/video"
)

// fakeDownloader's FetchRange always fails with
// ErrPartialFetchUnsupported, forcing fetchClip's full-download fallback.
type fakeDownloader struct {
	fetchFullCalls int
}

func (*fakeDownloader) Heatmap(requestID, videoURL string) ([]clients.HeatmapPoint, error) {
	return nil, nil
}
func (*fakeDownloader) Comments(requestID, videoURL string, max int) ([]clients.Comment, error) {
	return nil, nil
}
func (*fakeDownloader) FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error {
	return clients.ErrPartialFetchUnsupported
}
func (f *fakeDownloader) FetchFull(requestID, videoURL, destPath string) error {
	f.fetchFullCalls++
	return nil
}

type fakeProber struct{}

func (fakeProber) ProbeFile(requestID, path string, opts ...string) (video.InputVideo, error) {
	return video.InputVideo{Duration: 30, Tracks: []video.InputTrack{{Type: "video"}, {Type: "audio"}}}, nil
}

func TestFetchClipFallsBackToFullDownloadWhenRangeUnsupported(t *testing.T) {
	require := require.New(t)

	downloader := &fakeDownloader{}
	coord := &Coordinator{
		Downloader: downloader,
		Prober:     fakeProber{},
		jobCaches:  cache.New[*jobCacheEntry](),
	}

	jobDir := t.TempDir()
	path, offsetS, err := coord.fetchClip("req-1", "job-1", "https://example.com/source.mp4", jobDir, 0, ClipSpec{StartS: 10, EndS: 20}, 720)

	require.NoError(err)
	require.Equal(1, downloader.fetchFullCalls)
	require.Equal(10.0, offsetS)
	require.Contains(path, "full-source.mp4")

	// A second clip in the same job reuses the cached full download.
	_, _, err = coord.fetchClip("req-1", "job-1", "https://example.com/source.mp4", jobDir, 1, ClipSpec{StartS: 40, EndS: 50}, 720)
	require.NoError(err)
	require.Equal(1, downloader.fetchFullCalls)
}
