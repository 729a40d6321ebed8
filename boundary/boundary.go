// Package boundary implements C4, the boundary optimizer: it shifts a
// candidate segment's start/end to the nearest natural silence boundary
// or high-energy hook within a bounded search window (spec.md §4.4).
package boundary

import (
	"math"

	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/detect"
)

// SilenceInterval is a detected quiet stretch of audio, the "sentence
// boundary" signal the optimizer prefers to snap to.
type SilenceInterval struct {
	StartS, EndS float64
}

type Options struct {
	MinDurationS float64
	MaxDurationS float64
}

func DefaultOptions() Options {
	return Options{MinDurationS: config.DefaultMinDurationS, MaxDurationS: config.DefaultMaxDurationS}
}

type BoundaryType string

const (
	BoundarySentenceStart BoundaryType = "sentence_start"
	BoundaryEnergyPeak    BoundaryType = "energy_peak"
	BoundaryOriginal      BoundaryType = "original"
)

type Result struct {
	StartS       float64
	EndS         float64
	BoundaryType BoundaryType
	HookScore    float64
	HookShiftS   float64
}

// Optimize runs C4 for a single segment. heatmap supplies the energy()
// lookups the start/end search windows score candidates with.
func Optimize(heatmap combiner.CombinedHeatmap, silences []SilenceInterval, seg detect.Segment, opts Options) Result {
	origStart, origEnd := seg.StartS, seg.EndS
	duration := videoDurationFromHeatmap(heatmap, origEnd)

	bestStart, boundaryType := findStart(heatmap, silences, origStart, duration)
	bestEnd := findEnd(heatmap, silences, bestStart, opts, duration)

	finalDuration := clampDuration(bestEnd-bestStart, opts.MinDurationS, opts.MaxDurationS)
	bestEnd = bestStart + finalDuration

	return Result{
		StartS:       bestStart,
		EndS:         bestEnd,
		BoundaryType: boundaryType,
		HookScore:    math.Round(100 * energy(heatmap, bestStart, bestStart+config.HookWindowS)),
		HookShiftS:   math.Round((bestStart-origStart)*10) / 10,
	}
}

func videoDurationFromHeatmap(heatmap combiner.CombinedHeatmap, fallback float64) float64 {
	if len(heatmap.Points) == 0 {
		return fallback
	}
	last := heatmap.Points[len(heatmap.Points)-1]
	return math.Max(float64(last.EndMs)/1000, fallback)
}

// findStart searches [startS-5, startS+2] (clamped) for a silence-end
// "sentence boundary" first, else a high-energy hook point, else falls
// back to the original start (spec.md §4.4).
func findStart(heatmap combiner.CombinedHeatmap, silences []SilenceInterval, startS, duration float64) (float64, BoundaryType) {
	windowStart := math.Max(0, startS-config.BoundaryStartWindowBeforeS)
	windowEnd := math.Min(duration, startS+config.BoundaryStartWindowAfterS)

	bestScore := -1.0
	bestCand := startS
	bestType := BoundaryOriginal

	for _, s := range silences {
		if s.EndS < windowStart || s.EndS > windowEnd {
			continue
		}
		score := 100*energy(heatmap, s.EndS, s.EndS+config.HookWindowS) + 20
		if score > bestScore {
			bestScore = score
			bestCand = s.EndS
			bestType = BoundarySentenceStart
		}
	}

	for _, p := range heatmap.Points {
		pointTimeS := float64(p.StartMs) / 1000
		if pointTimeS < windowStart || pointTimeS > windowEnd {
			continue
		}
		if p.Intensity <= config.EnergyPeakThreshold {
			continue
		}
		score := 100*((p.Intensity+energy(heatmap, pointTimeS, pointTimeS+config.HookWindowS))/2) + 10
		if score > bestScore {
			bestScore = score
			bestCand = pointTimeS
			bestType = BoundaryEnergyPeak
		}
	}

	if bestScore < 0 {
		return startS, BoundaryOriginal
	}
	return bestCand, bestType
}

// findEnd searches [bestStart+minDurationS, min(bestStart+maxDurationS,
// duration)] for a silence-start boundary, else the first significant
// energy drop (spec.md §4.4).
func findEnd(heatmap combiner.CombinedHeatmap, silences []SilenceInterval, bestStart float64, opts Options, duration float64) float64 {
	windowStart := bestStart + opts.MinDurationS
	windowEnd := math.Min(bestStart+opts.MaxDurationS, duration)
	if windowEnd <= windowStart {
		return windowEnd
	}

	for _, s := range silences {
		if s.StartS >= windowStart && s.StartS <= windowEnd {
			return s.StartS
		}
	}

	var prevIntensity float64 = -1
	for _, p := range heatmap.Points {
		pointTimeS := float64(p.StartMs) / 1000
		if pointTimeS < windowStart || pointTimeS > windowEnd {
			if pointTimeS < windowStart {
				prevIntensity = p.Intensity
			}
			continue
		}
		if prevIntensity > config.EnergyDropPrevMin && p.Intensity < config.EnergyDropRatio*prevIntensity {
			return pointTimeS
		}
		prevIntensity = p.Intensity
	}

	return windowEnd
}

func clampDuration(d, minD, maxD float64) float64 {
	if d < minD {
		return minD
	}
	if d > maxD {
		return maxD
	}
	return d
}

// energy averages heatmap intensity over [startS, endS).
func energy(heatmap combiner.CombinedHeatmap, startS, endS float64) float64 {
	var sum float64
	var count int
	for _, p := range heatmap.Points {
		pStart := float64(p.StartMs) / 1000
		if pStart >= startS && pStart < endS {
			sum += p.Intensity
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// VerifyNonOverlap checks the post-condition spec.md §4.4 requires: the
// optimizer must never introduce overlaps. On conflict with the previous
// segment, it returns this segment's original bounds instead of the
// optimized ones (the open question in spec.md §9 resolved here as a hard
// verify-and-fallback rather than a silent best-effort).
func VerifyNonOverlap(prev *Result, result Result, origSeg detect.Segment) Result {
	if prev != nil && result.StartS < prev.EndS {
		return Result{
			StartS:       origSeg.StartS,
			EndS:         origSeg.EndS,
			BoundaryType: BoundaryOriginal,
			HookScore:    math.Round(100 * 0),
			HookShiftS:   0,
		}
	}
	return result
}
