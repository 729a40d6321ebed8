// Package detect implements C3, the peak detector: adaptive thresholding,
// zone merging, duration-constrained candidate sizing, composite scoring,
// and greedy non-overlapping selection with gap relaxation (spec.md §4.3).
package detect

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/config"
)

type Options struct {
	TopN               int
	MinDurationS       float64
	MaxDurationS       float64
	MinGapS            float64
	IntensityThreshold float64
}

func DefaultOptions() Options {
	return Options{
		TopN:               config.DefaultTopN,
		MinDurationS:       config.DefaultMinDurationS,
		MaxDurationS:       config.DefaultMaxDurationS,
		MinGapS:            config.DefaultMinGapS,
		IntensityThreshold: config.DefaultIntensityThreshold,
	}
}

// Segment is the public result of detection: a candidate that survived
// non-overlapping selection and was assigned a stable id (spec.md §3).
type Segment struct {
	ID            string
	StartS        float64
	EndS          float64
	DurationS     float64
	AvgIntensity  float64
	PeakIntensity float64
	PeakTimeS     float64
}

// candidate is the internal, not-yet-selected, sized time range C3 builds
// from a zone (spec.md §3).
type candidate struct {
	startS, endS, durationS     float64
	avgIntensity, peakIntensity float64
	peakTimeS                   float64
	score                       float64
}

type zone struct {
	startMs, endMs int64
	intensities    []float64
	peakIntensity  float64
	peakTimeMs     int64
}

// Detect runs the full C3 pipeline and returns topN non-overlapping
// segments sorted by start time.
func Detect(heatmap combiner.CombinedHeatmap, durationS float64, opts Options) []Segment {
	if opts.TopN <= 0 {
		opts = DefaultOptions()
	}

	markers, threshold := adaptiveThreshold(heatmap, opts.IntensityThreshold)
	if len(markers) == 0 {
		return nil
	}
	_ = threshold

	zones := mergeZones(markers)
	candidates := sizeCandidates(zones, durationS, opts.MinDurationS, opts.MaxDurationS)
	scoreCandidates(candidates, opts.MaxDurationS)

	// Stable sort by score descending; ties keep the zone (step 2)
	// insertion order, matching spec.md §4.3's tie-break rule.
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	selected := greedySelect(candidates, opts.MinGapS, opts.TopN)
	if len(selected) < opts.TopN {
		relaxedGap := math.Max(opts.MinGapS/2, 10)
		selected = greedySelectMore(candidates, selected, relaxedGap, opts.TopN)
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].startS < selected[j].startS })

	segments := make([]Segment, 0, len(selected))
	for _, c := range selected {
		segments = append(segments, Segment{
			ID:            uuid.NewString(),
			StartS:        round1(c.startS),
			EndS:          round1(c.endS),
			DurationS:     round1(c.durationS),
			AvgIntensity:  round3(c.avgIntensity),
			PeakIntensity: round3(c.peakIntensity),
			PeakTimeS:     c.peakTimeS,
		})
	}
	return segments
}

// adaptiveThreshold starts at the configured threshold and relaxes by
// ThresholdStep while fewer than MinMarkersBeforeStop markers survive and
// the threshold remains above ThresholdFloor (spec.md §4.3 step 1).
func adaptiveThreshold(heatmap combiner.CombinedHeatmap, startThreshold float64) ([]heatmapMarker, float64) {
	threshold := startThreshold
	for {
		markers := markersAbove(heatmap, threshold)
		if len(markers) >= config.MinMarkersBeforeStop || threshold <= config.ThresholdFloor {
			return markers, threshold
		}
		threshold -= config.ThresholdStep
	}
}

type heatmapMarker struct {
	startMs, endMs int64
	intensity      float64
}

func markersAbove(heatmap combiner.CombinedHeatmap, threshold float64) []heatmapMarker {
	var markers []heatmapMarker
	for _, p := range heatmap.Points {
		if p.Intensity >= threshold {
			markers = append(markers, heatmapMarker{p.StartMs, p.EndMs, p.Intensity})
		}
	}
	return markers
}

// mergeZones merges consecutive markers whose time gap is <= ZoneMergeGapMs
// into one zone (spec.md §4.3 step 2). Markers are assumed sorted by
// StartMs already (the heatmap they come from is grid-ordered).
func mergeZones(markers []heatmapMarker) []zone {
	sort.Slice(markers, func(i, j int) bool { return markers[i].startMs < markers[j].startMs })

	var zones []zone
	for _, m := range markers {
		if len(zones) > 0 {
			last := &zones[len(zones)-1]
			if m.startMs-last.endMs <= config.ZoneMergeGapMs {
				last.endMs = m.endMs
				last.intensities = append(last.intensities, m.intensity)
				if m.intensity > last.peakIntensity {
					last.peakIntensity = m.intensity
					last.peakTimeMs = (m.startMs + m.endMs) / 2
				}
				continue
			}
		}
		zones = append(zones, zone{
			startMs:       m.startMs,
			endMs:         m.endMs,
			intensities:   []float64{m.intensity},
			peakIntensity: m.intensity,
			peakTimeMs:    (m.startMs + m.endMs) / 2,
		})
	}
	return zones
}

// sizeCandidates centers each zone on its peak and expands/shrinks it to
// fit within [minDurationS, maxDurationS], clamped to the video bounds
// (spec.md §4.3 step 3).
func sizeCandidates(zones []zone, durationS, minDurationS, maxDurationS float64) []candidate {
	candidates := make([]candidate, 0, len(zones))
	for _, z := range zones {
		startS := float64(z.startMs) / 1000
		endS := float64(z.endMs) / 1000
		peakTimeS := float64(z.peakTimeMs) / 1000
		dur := endS - startS

		switch {
		case dur < minDurationS:
			startS, endS = expandAround(peakTimeS, minDurationS, durationS)
		case dur > maxDurationS:
			startS, endS = expandAround(peakTimeS, maxDurationS, durationS)
		}

		avg := 0.0
		for _, v := range z.intensities {
			avg += v
		}
		avg /= float64(len(z.intensities))

		candidates = append(candidates, candidate{
			startS:        startS,
			endS:          endS,
			durationS:     endS - startS,
			avgIntensity:  avg,
			peakIntensity: z.peakIntensity,
			peakTimeS:     peakTimeS,
		})
	}
	return candidates
}

// expandAround centers a window of width targetDurationS on center,
// shifting the opposite edge inward/outward when clipped by the video's
// [0, durationS] bounds so the resulting width still matches target
// wherever physically possible.
func expandAround(center, targetDurationS, durationS float64) (float64, float64) {
	half := targetDurationS / 2
	start := center - half
	end := center + half

	if start < 0 {
		deficit := -start
		start = 0
		end += deficit
	}
	if end > durationS {
		excess := end - durationS
		end = durationS
		start -= excess
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// scoreCandidates assigns each candidate a composite score (spec.md §4.3
// step 4).
func scoreCandidates(candidates []candidate, maxDurationS float64) {
	for i := range candidates {
		c := &candidates[i]
		durationFactor := math.Min(c.durationS/maxDurationS, 1)
		c.score = 1.0*c.avgIntensity + 0.3*c.peakIntensity + 0.1*durationFactor
	}
}

// greedySelect admits candidates in score order as long as every already
// selected segment keeps at least minGapS clearance (spec.md §4.3 step 5).
func greedySelect(candidates []candidate, minGapS float64, topN int) []candidate {
	var selected []candidate
	for _, c := range candidates {
		if len(selected) >= topN {
			break
		}
		if fitsGap(c, selected, minGapS) {
			selected = append(selected, c)
		}
	}
	return selected
}

// greedySelectMore keeps every already-selected candidate and adds further
// candidates at a relaxed gap, to honor spec.md §4.3 step 6 without
// possibly losing previously-admitted segments.
func greedySelectMore(candidates []candidate, alreadySelected []candidate, relaxedGap float64, topN int) []candidate {
	selected := append([]candidate(nil), alreadySelected...)
	for _, c := range candidates {
		if len(selected) >= topN {
			break
		}
		if containsCandidate(selected, c) {
			continue
		}
		if fitsGap(c, selected, relaxedGap) {
			selected = append(selected, c)
		}
	}
	return selected
}

func containsCandidate(list []candidate, c candidate) bool {
	for _, s := range list {
		if s.startS == c.startS && s.endS == c.endS {
			return true
		}
	}
	return false
}

// fitsGap reports whether c keeps at least gapS clearance from every
// already-selected segment. A negative clearance means overlap, which is
// always rejected.
func fitsGap(c candidate, selected []candidate, gapS float64) bool {
	for _, s := range selected {
		clearance := math.Max(c.startS-s.endS, s.startS-c.endS)
		if clearance < gapS {
			return false
		}
	}
	return true
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
