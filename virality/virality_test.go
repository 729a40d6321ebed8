package virality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/signals"
)

func TestSubScoresAndOverallInBounds(t *testing.T) {
	points := []signals.IntensityPoint{
		{StartMs: 0, EndMs: 2000, Intensity: 0.9},
		{StartMs: 2000, EndMs: 4000, Intensity: 0.1},
		{StartMs: 4000, EndMs: 6000, Intensity: 0.8},
	}
	hm := combiner.CombinedHeatmap{Points: points, WindowMs: 2000}
	seg := detect.Segment{StartS: 0, EndS: 6, DurationS: 6, AvgIntensity: 0.6, PeakIntensity: 0.9}

	b := Score(hm, seg, 600)
	for _, sub := range []int{b.PeakIntensity, b.HookStrength, b.Pacing, b.AudioEnergy, b.PositionBonus, b.DurationFit, b.Overall} {
		require.GreaterOrEqual(t, sub, 0)
		require.LessOrEqual(t, sub, 100)
	}
}

func TestDurationFitSweetSpot(t *testing.T) {
	require.Equal(t, 100.0, durationFit(35))
	require.Equal(t, 30.0, durationFit(5))
	require.Equal(t, 50.0, durationFit(17))
}

func TestLabelBuckets(t *testing.T) {
	require.Equal(t, "Viral", label(85))
	require.Equal(t, "Strong", label(65))
	require.Equal(t, "Good", label(45))
	require.Equal(t, "Fair", label(10))
}

func TestPositionBonusDecreasesOverTheVideo(t *testing.T) {
	early := positionBonus(10, 600)
	mid := positionBonus(300, 600)
	late := positionBonus(590, 600)
	require.Greater(t, early, mid)
	require.Greater(t, mid, late)
}

func TestDeterministic(t *testing.T) {
	points := []signals.IntensityPoint{{StartMs: 0, EndMs: 2000, Intensity: 0.5}}
	hm := combiner.CombinedHeatmap{Points: points, WindowMs: 2000}
	seg := detect.Segment{StartS: 0, EndS: 20, DurationS: 20, AvgIntensity: 0.5, PeakIntensity: 0.5}
	a := Score(hm, seg, 100)
	b := Score(hm, seg, 100)
	require.Equal(t, a, b)
}
