package pipeline

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripScorePrefersBrighterStrip(t *testing.T) {
	require := require.New(t)

	img := image.NewRGBA(image.Rect(0, 0, 100, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
			}
		}
	}

	dark := stripScore(img, 0, 50, 0, 10, 0, 2)
	bright := stripScore(img, 50, 100, 0, 10, 1, 2)
	require.Greater(bright, dark)
}

func TestScoreFrameCropXPicksBrightSideWindow(t *testing.T) {
	require := require.New(t)

	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 400; x++ {
			if x >= 300 {
				img.Set(x, y, color.RGBA{R: 250, G: 10, B: 200, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 5, G: 5, B: 5, A: 255})
			}
		}
	}

	path := filepath.Join(t.TempDir(), "frame.jpg")
	f, err := os.Create(path)
	require.NoError(err)
	require.NoError(jpeg.Encode(f, img, nil))
	require.NoError(f.Close())

	x, err := scoreFrameCropX(path)
	require.NoError(err)
	// The window should land on the bright half of the frame rather than
	// the dark half.
	require.Greater(x, 100)
}
