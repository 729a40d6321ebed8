package video

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/vansante/go-ffprobe.v2"
)

func TestItRejectsWhenNoVideoTrackPresent(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "audio",
			},
		},
	})
	require.ErrorContains(t, err, "no video stream found")
}

func TestItRejectsWhenMJPEGVideoTrackPresent(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "video",
				CodecName: "mjpeg",
			},
		},
	})
	require.ErrorContains(t, err, "mjpeg is not supported")

	_, err = parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "video",
				CodecName: "jpeg",
			},
		},
	})
	require.ErrorContains(t, err, "jpeg is not supported")
}

func TestItRejectsWhenFormatMissing(t *testing.T) {
	_, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "video",
			},
		},
	})
	require.ErrorContains(t, err, "format information missing")
}

func TestNoAudioTrackMeansHasAudioFalse(t *testing.T) {
	iv, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{
				CodecType: "video",
				BitRate:   "",
			},
		},
		Format: &ffprobe.Format{
			Size: "1",
		},
	})
	require.NoError(t, err)
	require.False(t, iv.HasAudio())
}

func TestAudioTrackDetected(t *testing.T) {
	iv, err := parseProbeOutput(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{CodecType: "video"},
			{CodecType: "audio", Channels: 2, SampleRate: "44100"},
		},
		Format: &ffprobe.Format{
			Size: "1",
		},
	})
	require.NoError(t, err)
	require.True(t, iv.HasAudio())
	track, ok := func() (InputTrack, bool) {
		for _, t := range iv.Tracks {
			if t.Type == TrackTypeAudio {
				return t, true
			}
		}
		return InputTrack{}, false
	}()
	require.True(t, ok)
	require.Equal(t, 2, track.Channels)
}

func TestIsPortrait(t *testing.T) {
	iv := InputVideo{Tracks: []InputTrack{{Type: TrackTypeVideo, VideoTrack: VideoTrack{Width: 1080, Height: 1920}}}}
	require.True(t, iv.IsPortrait())

	iv = InputVideo{Tracks: []InputTrack{{Type: TrackTypeVideo, VideoTrack: VideoTrack{Width: 1920, Height: 1080}}}}
	require.False(t, iv.IsPortrait())
}
