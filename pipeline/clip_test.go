package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputDimensionsKeeps16By9(t *testing.T) {
	w, h := outputDimensions(720)
	require.Equal(t, 720, h)
	require.Equal(t, 720*9/16, w)
}

func TestSmoothCropXAveragesAroundEachFrame(t *testing.T) {
	require := require.New(t)

	xs := []int{0, 0, 100, 0, 0}
	smoothed := smoothCropX(xs, 2)
	require.Len(smoothed, len(xs))

	// The spike at index 2 should be pulled down by its neighbors rather
	// than passed through untouched.
	require.Less(smoothed[2], 100)
	require.GreaterOrEqual(smoothed[2], 0)
}

func TestSmoothCropXSingleFrameWindow(t *testing.T) {
	xs := []int{5, 9, 13}
	smoothed := smoothCropX(xs, 0)
	require.Equal(t, xs, smoothed)
}
