// Package combiner implements C2, the signal combiner: it resamples
// arbitrary probe outputs onto a uniform grid, weights and normalizes
// them, and optionally smooths the result (spec.md §4.2).
package combiner

import (
	"math"

	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/signals"
)

// CombinedHeatmap is a uniform-grid sequence where every entry's
// `EndMs - StartMs == WindowMs`, final intensities min-max normalized.
type CombinedHeatmap struct {
	Points      []signals.IntensityPoint
	WindowMs    int64
	MethodsUsed []signals.Method
}

type Options struct {
	WindowMs     int64
	SmoothWindow int // 0 disables smoothing
}

func DefaultOptions() Options {
	return Options{WindowMs: config.DefaultWindowMs, SmoothWindow: config.DefaultSmoothWindow}
}

// Combine runs the full C2 pipeline: drop empty sources, short-circuit on
// a single source, otherwise resample-max + per-source normalize +
// weighted accumulate + min-max normalize, with optional smoothing.
func Combine(sources []signals.SignalSource, durationMs int64, opts Options) CombinedHeatmap {
	if opts.WindowMs <= 0 {
		opts.WindowMs = config.DefaultWindowMs
	}

	var nonEmpty []signals.SignalSource
	for _, s := range sources {
		if !s.Empty() {
			nonEmpty = append(nonEmpty, s)
		}
	}

	if len(nonEmpty) == 0 {
		return CombinedHeatmap{WindowMs: opts.WindowMs}
	}

	if len(nonEmpty) == 1 {
		s := nonEmpty[0]
		return CombinedHeatmap{
			Points:      append([]signals.IntensityPoint(nil), s.Points...),
			WindowMs:    opts.WindowMs,
			MethodsUsed: []signals.Method{s.Method},
		}
	}

	nBuckets := int(math.Ceil(float64(durationMs) / float64(opts.WindowMs)))
	if nBuckets < 1 {
		nBuckets = 1
	}

	accumulator := make([]float64, nBuckets)
	methods := make([]signals.Method, 0, len(nonEmpty))
	for _, s := range nonEmpty {
		resampled := resampleMax(s.Points, opts.WindowMs, nBuckets)
		normalizeGrid(resampled)
		weight := s.Weight
		for i := 0; i < nBuckets; i++ {
			accumulator[i] += weight * resampled[i]
		}
		methods = append(methods, s.Method)
	}

	normalizeGrid(accumulator)

	points := make([]signals.IntensityPoint, nBuckets)
	for i := 0; i < nBuckets; i++ {
		start := int64(i) * opts.WindowMs
		end := start + opts.WindowMs
		if end > durationMs {
			end = durationMs
		}
		points[i] = signals.IntensityPoint{StartMs: start, EndMs: end, Intensity: accumulator[i]}
	}

	if opts.SmoothWindow > 1 {
		points = smooth(points, opts.SmoothWindow)
	}

	methodsUsed := methods
	if len(methods) > 1 {
		methodsUsed = append(append([]signals.Method{}, methods...), "combined")
	}

	return CombinedHeatmap{Points: points, WindowMs: opts.WindowMs, MethodsUsed: methodsUsed}
}

// resampleMax maps each source point onto every grid bucket it overlaps,
// taking the max of the current bucket value and the point's intensity
// (spec.md §4.2 step 3). Idempotent on an already-uniform grid matching
// windowMs (spec.md §8 property 6).
func resampleMax(points []signals.IntensityPoint, windowMs int64, nBuckets int) []float64 {
	grid := make([]float64, nBuckets)
	for _, p := range points {
		firstBucket := int(p.StartMs / windowMs)
		lastBucket := int((p.EndMs - 1) / windowMs)
		if p.EndMs <= p.StartMs {
			lastBucket = firstBucket
		}
		for b := firstBucket; b <= lastBucket; b++ {
			if b < 0 || b >= nBuckets {
				continue
			}
			if p.Intensity > grid[b] {
				grid[b] = p.Intensity
			}
		}
	}
	return grid
}

func normalizeGrid(grid []float64) {
	if len(grid) == 0 {
		return
	}
	min, max := grid[0], grid[0]
	for _, v := range grid {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	for i := range grid {
		if span == 0 {
			grid[i] = 0
			continue
		}
		grid[i] = (grid[i] - min) / span
	}
}

// smooth applies a centered moving average of window w (fewer samples at
// the edges) over the intensity values (spec.md §4.2 step 7).
func smooth(points []signals.IntensityPoint, w int) []signals.IntensityPoint {
	n := len(points)
	out := make([]signals.IntensityPoint, n)
	half := w / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		if w%2 == 0 {
			hi--
		}
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		sum := 0.0
		count := 0
		for j := lo; j <= hi; j++ {
			sum += points[j].Intensity
			count++
		}
		out[i] = points[i]
		out[i].Intensity = sum / float64(count)
	}
	return out
}
