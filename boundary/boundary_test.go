package boundary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/signals"
)

func flatHeatmap(durationS int, windowMs int64, intensity float64) combiner.CombinedHeatmap {
	n := int(int64(durationS)*1000/windowMs) + 1
	points := make([]signals.IntensityPoint, 0, n)
	for i := 0; i < n; i++ {
		start := int64(i) * windowMs
		points = append(points, signals.IntensityPoint{StartMs: start, EndMs: start + windowMs, Intensity: intensity})
	}
	return combiner.CombinedHeatmap{Points: points, WindowMs: windowMs}
}

func TestS5BoundarySnapToSilence(t *testing.T) {
	hm := flatHeatmap(200, 1000, 0.3)
	silences := []SilenceInterval{{StartS: 98, EndS: 99}}
	seg := detect.Segment{StartS: 100, EndS: 140, DurationS: 40}

	result := Optimize(hm, silences, seg, DefaultOptions())
	require.InDelta(t, 99, result.StartS, 0.01)
	require.Equal(t, BoundarySentenceStart, result.BoundaryType)
}

func TestDurationClampedToBounds(t *testing.T) {
	hm := flatHeatmap(200, 1000, 0.3)
	seg := detect.Segment{StartS: 10, EndS: 15, DurationS: 5}
	opts := DefaultOptions()
	result := Optimize(hm, nil, seg, opts)
	require.GreaterOrEqual(t, result.EndS-result.StartS, opts.MinDurationS-0.01)
	require.LessOrEqual(t, result.EndS-result.StartS, opts.MaxDurationS+0.01)
}

func TestVerifyNonOverlapFallsBackOnConflict(t *testing.T) {
	prev := Result{StartS: 50, EndS: 90}
	conflicting := Result{StartS: 85, EndS: 120}
	orig := detect.Segment{StartS: 90, EndS: 130}
	out := VerifyNonOverlap(&prev, conflicting, orig)
	require.Equal(t, orig.StartS, out.StartS)
	require.Equal(t, orig.EndS, out.EndS)
	require.Equal(t, BoundaryOriginal, out.BoundaryType)
}

func TestVerifyNonOverlapPassesThroughWhenClear(t *testing.T) {
	prev := Result{StartS: 50, EndS: 90}
	ok := Result{StartS: 95, EndS: 130}
	orig := detect.Segment{StartS: 95, EndS: 130}
	out := VerifyNonOverlap(&prev, ok, orig)
	require.Equal(t, ok, out)
}
