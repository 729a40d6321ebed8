// Package virality implements C5: a weighted composite score over a
// segment plus its signal context (spec.md §4.5).
package virality

import (
	"math"

	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
)

type Breakdown struct {
	Overall       int
	PeakIntensity int
	HookStrength  int
	Pacing        int
	AudioEnergy   int
	PositionBonus int
	DurationFit   int
	Label         string
	Color         string
}

// Score computes the six sub-scores and the weighted overall score for a
// segment, given the combined heatmap it was detected from and the
// video's total duration (for the positional bonus).
func Score(heatmap combiner.CombinedHeatmap, seg detect.Segment, videoDurationS float64) Breakdown {
	inSegment := pointsIn(heatmap, seg.StartS, seg.EndS)

	peak := 100 * seg.PeakIntensity
	hook := hookStrength(heatmap, seg)
	pacing := pacingScore(inSegment)
	audio := 100 * seg.AvgIntensity
	position := positionBonus(seg.StartS, videoDurationS)
	duration := durationFit(seg.DurationS)

	overall := 0.30*peak + 0.25*hook + 0.15*pacing + 0.15*audio + 0.10*position + 0.05*duration

	return Breakdown{
		Overall:       roundClamp(overall),
		PeakIntensity: roundClamp(peak),
		HookStrength:  roundClamp(hook),
		Pacing:        roundClamp(pacing),
		AudioEnergy:   roundClamp(audio),
		PositionBonus: roundClamp(position),
		DurationFit:   roundClamp(duration),
		Label:         label(roundClamp(overall)),
		Color:         color(roundClamp(overall)),
	}
}

func pointsIn(heatmap combiner.CombinedHeatmap, startS, endS float64) []float64 {
	var out []float64
	for _, p := range heatmap.Points {
		pStart := float64(p.StartMs) / 1000
		pEnd := float64(p.EndMs) / 1000
		if pStart < endS && pEnd > startS {
			out = append(out, p.Intensity)
		}
	}
	return out
}

// hookStrength scores the first 3 seconds of the segment: spec.md §4.5.
func hookStrength(heatmap combiner.CombinedHeatmap, seg detect.Segment) float64 {
	hookPoints := pointsIn(heatmap, seg.StartS, seg.StartS+3)
	if len(hookPoints) == 0 {
		return 0.50 * 100 * seg.AvgIntensity
	}
	h := mean(hookPoints)
	bonus := 0.0
	if h > seg.AvgIntensity {
		bonus = 15
	}
	return math.Min(100, 85*h+bonus)
}

// pacingScore rewards variance in intensity across the segment: spec.md
// §4.5.
func pacingScore(points []float64) float64 {
	if len(points) < 3 {
		return 50
	}
	return math.Min(100, 400*stddev(points))
}

// positionBonus rewards earlier segments more, piecewise by thirds of the
// video (spec.md §4.5).
func positionBonus(startS, videoDurationS float64) float64 {
	if videoDurationS <= 0 {
		return 50
	}
	frac := startS / videoDurationS
	switch {
	case frac < 1.0/3:
		// first third: 80..100, higher earlier
		return 100 - (frac / (1.0 / 3)) * 20
	case frac < 2.0/3:
		// middle third: 50..80
		localFrac := (frac - 1.0/3) / (1.0 / 3)
		return 80 - localFrac*30
	default:
		// last third: 30..50
		localFrac := (frac - 2.0/3) / (1.0 / 3)
		if localFrac > 1 {
			localFrac = 1
		}
		return 50 - localFrac*20
	}
}

// durationFit rewards the 30-45s sweet spot; spec.md §4.5.
func durationFit(durationS float64) float64 {
	switch {
	case durationS >= 30 && durationS <= 45:
		return 100
	case durationS > 45 && durationS <= 60:
		return 100 - (durationS-45)/(60-45)*70
	case durationS >= 20 && durationS < 30:
		return 70 + (durationS-20)/(30-20)*30
	case durationS >= 15 && durationS < 20:
		return 50
	default:
		return 30
	}
}

func label(overall int) string {
	switch {
	case overall >= 80:
		return "Viral"
	case overall >= 60:
		return "Strong"
	case overall >= 40:
		return "Good"
	default:
		return "Fair"
	}
}

func color(overall int) string {
	switch {
	case overall >= 80:
		return "red"
	case overall >= 60:
		return "green"
	case overall >= 40:
		return "amber"
	default:
		return "gray"
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddev(vs []float64) float64 {
	m := mean(vs)
	var sumSq float64
	for _, v := range vs {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vs)))
}

func roundClamp(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
