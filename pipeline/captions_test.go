package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/clients"
)

func TestResolveCaptionStyle(t *testing.T) {
	require := require.New(t)

	_, ok := resolveCaptionStyle("")
	require.False(ok)

	_, ok = resolveCaptionStyle("off")
	require.False(ok)

	style, ok := resolveCaptionStyle("tiktok")
	require.True(ok)
	require.Equal("wordByWord", style.Animation)

	style, ok = resolveCaptionStyle("does-not-exist")
	require.True(ok)
	require.Equal(captionPresets["classic"], style)
}

func TestSliceSubtitlesRebasesAndDrops(t *testing.T) {
	require := require.New(t)

	entries := []clients.SubtitleEntry{
		{StartS: 0, EndS: 5, Text: "before"},
		{StartS: 12, EndS: 18, Text: "inside"},
		{StartS: 40, EndS: 45, Text: "after"},
	}

	sliced := sliceSubtitles(entries, 10, 20)
	require.Len(sliced, 1)
	require.Equal("inside", sliced[0].Text)
	require.InDelta(2, sliced[0].StartS, 0.001)
	require.InDelta(8, sliced[0].EndS, 0.001)
}

func TestFormatASSTime(t *testing.T) {
	require := require.New(t)
	require.Equal("0:00:00.00", formatASSTime(0))
	require.Equal("0:01:05.50", formatASSTime(65.5))
	require.Equal("1:00:00.00", formatASSTime(3600))
}

func TestWriteASSProducesDialogueEvents(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "subs.ass")
	entries := []clients.SubtitleEntry{{StartS: 1, EndS: 2, Text: "hello"}}
	style := captionPresets["classic"]

	require.NoError(writeASS(path, entries, style))

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(data), "[Events]")
	require.Contains(string(data), "hello")
	require.Contains(string(data), "Dialogue: 0,0:00:01.00,0:00:02.00")
}
