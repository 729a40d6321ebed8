package combiner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/signals"
)

func TestSingleSourceIdentity(t *testing.T) {
	s := signals.SignalSource{
		Method: signals.MethodHeatmap,
		Weight: 1.0,
		Points: []signals.IntensityPoint{
			{StartMs: 0, EndMs: 2000, Intensity: 0.3},
			{StartMs: 2000, EndMs: 4000, Intensity: 0.9},
		},
	}
	out := Combine([]signals.SignalSource{s}, 4000, DefaultOptions())
	require.Equal(t, s.Points, out.Points)
	require.Equal(t, []signals.Method{signals.MethodHeatmap}, out.MethodsUsed)
}

func TestEmptySourcesDropped(t *testing.T) {
	empty := signals.SignalSource{Method: signals.MethodAudio}
	real := signals.SignalSource{Method: signals.MethodScene, Weight: 1, Points: []signals.IntensityPoint{
		{StartMs: 0, EndMs: 2000, Intensity: 1},
	}}
	out := Combine([]signals.SignalSource{empty, real}, 2000, DefaultOptions())
	require.Equal(t, []signals.Method{signals.MethodScene}, out.MethodsUsed)
}

func TestAllEmptyYieldsNoPoints(t *testing.T) {
	out := Combine([]signals.SignalSource{{Method: signals.MethodAudio}}, 2000, DefaultOptions())
	require.Empty(t, out.Points)
}

func TestFusionFavorsHigherWeightPeak(t *testing.T) {
	audio := signals.SignalSource{Method: signals.MethodAudio, Weight: 1.0, Points: []signals.IntensityPoint{
		{StartMs: 48000, EndMs: 50000, Intensity: 1.0},
	}}
	comments := signals.SignalSource{Method: signals.MethodComments, Weight: 1.2, Points: []signals.IntensityPoint{
		{StartMs: 198000, EndMs: 200000, Intensity: 1.0},
	}}
	out := Combine([]signals.SignalSource{audio, comments}, 220000, Options{WindowMs: 2000})

	var peakIdx int
	peak := -1.0
	for i, p := range out.Points {
		if p.Intensity > peak {
			peak = p.Intensity
			peakIdx = i
		}
	}
	peakTimeMs := int64(peakIdx) * out.WindowMs
	require.Greater(t, peakTimeMs, int64(100000), "combined peak should land nearer the comments burst than the audio burst")
}

func TestResampleMaxIdempotentOnUniformGrid(t *testing.T) {
	windowMs := int64(2000)
	points := []signals.IntensityPoint{
		{StartMs: 0, EndMs: windowMs, Intensity: 0.2},
		{StartMs: windowMs, EndMs: 2 * windowMs, Intensity: 0.8},
	}
	grid := resampleMax(points, windowMs, 2)
	require.Equal(t, []float64{0.2, 0.8}, grid)
}

func TestSmoothingAveragesNeighbors(t *testing.T) {
	points := []signals.IntensityPoint{
		{Intensity: 0}, {Intensity: 1}, {Intensity: 0},
	}
	out := smooth(points, 3)
	require.InDelta(t, 1.0/3, out[1].Intensity, 1e-9)
}
