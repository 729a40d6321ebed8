// Package autodetect runs the full C1-C5 pipeline (probe, combine,
// detect, snap boundaries, score virality) against a source URL and
// returns its candidate highlight segments. It is shared by the
// /api/analyze handler (which returns the full result to the caller) and
// the batch tracker (which only needs the top segment per URL to start a
// cut job automatically).
package autodetect

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	"github.com/livepeer/catalyst-api/boundary"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
	"github.com/livepeer/catalyst-api/virality"
)

// Segment is one detected and boundary-snapped highlight candidate.
type Segment struct {
	detect.Segment
	StartS       float64
	EndS         float64
	DurationS    float64
	BoundaryType boundary.BoundaryType
}

type Detection struct {
	Primary signals.Method
	Sources []signals.Method
}

type Result struct {
	Video          video.InputVideo
	Heatmap        combiner.CombinedHeatmap
	Segments       []Segment
	Detection      Detection
	ViralityScores map[string]virality.Breakdown
}

// Probes bundles every C1 source and the collaborators C3/C4 need to run
// the full detection pipeline against a URL.
type Probes struct {
	Prober     video.Prober
	Heatmap    signals.HeatmapProbe
	Audio      signals.AudioProbe
	Scene      signals.SceneProbe
	Comments   signals.CommentProbe
	Transcoder clients.Transcoder
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// Run probes videoURL with every configured C1 source, fuses them (C2),
// detects candidate segments (C3), snaps their boundaries (C4), and
// scores each for virality (C5).
//
// Orchestration follows spec.md §4.1: the comment probe (no download
// needed) and the heatmap probe run first; audio+scene only run as the
// fallback analysis — when the heatmap is unavailable or the comment
// signal is too weak to trust alone — and run concurrently with each
// other in that case. When the heatmap is present and the comment signal
// is strong, audio+scene are skipped entirely: §4.2's default weighting
// uses the heatmap alone, so probing audio+scene in that case would only
// pay for transcoder passes whose output gets discarded.
func (p Probes) Run(requestID, videoURL string, detectOpts detect.Options, combineOpts combiner.Options) (Result, error) {
	iv, err := p.Prober.ProbeFile(requestID, videoURL)
	if err != nil {
		return Result{}, err
	}

	commentResult := p.Comments.Probe(requestID, videoURL, iv.Duration)
	heatmapSource := p.Heatmap.Probe(requestID, videoURL)

	audioSource := signals.SignalSource{Method: signals.MethodAudio}
	sceneSource := signals.SignalSource{Method: signals.MethodScene}
	ranFallback := heatmapSource.Empty() || !commentResult.IsStrong()
	if ranFallback {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			audioSource = p.Audio.Probe(requestID, videoURL, iv.Duration)
		}()
		go func() {
			defer wg.Done()
			sceneSource = p.Scene.Probe(requestID, videoURL, iv.Duration)
		}()
		wg.Wait()
	}

	sources := []signals.SignalSource{heatmapSource, audioSource, sceneSource, commentResult.Source}
	probed := []signals.SignalSource{heatmapSource, commentResult.Source}
	if ranFallback {
		probed = append(probed, audioSource, sceneSource)
	}
	combined := combiner.Combine(sources, int64(iv.Duration*1000), combineOpts)
	detected := detect.Detect(combined, iv.Duration, detectOpts)

	silences := p.detectSilences(requestID, videoURL)

	segments := make([]Segment, 0, len(detected))
	viralityScores := make(map[string]virality.Breakdown, len(detected))
	var prev *boundary.Result
	for _, seg := range detected {
		result := boundary.Optimize(combined, silences, seg, boundary.DefaultOptions())
		result = boundary.VerifyNonOverlap(prev, result, seg)
		prevCopy := result
		prev = &prevCopy

		snapped := seg
		snapped.StartS = result.StartS
		snapped.EndS = result.EndS
		snapped.DurationS = result.EndS - result.StartS

		segments = append(segments, Segment{
			Segment:      seg,
			StartS:       result.StartS,
			EndS:         result.EndS,
			DurationS:    snapped.DurationS,
			BoundaryType: result.BoundaryType,
		})
		viralityScores[seg.ID] = virality.Score(combined, snapped, iv.Duration)
	}

	for _, s := range probed {
		if s.Empty() {
			sourceEmpty(s.Method)
		}
	}

	return Result{
		Video:          iv,
		Heatmap:        combined,
		Segments:       segments,
		Detection:      Detection{Primary: primaryMethod(sources), Sources: usedMethods(sources)},
		ViralityScores: viralityScores,
	}, nil
}

func (p Probes) detectSilences(requestID, videoURL string) []boundary.SilenceInterval {
	out, err := p.Transcoder.SilenceDetect(context.Background(), videoURL, config.AudioSilenceNoiseDB, config.AudioSilenceMinS)
	if err != nil {
		log.Log(requestID, "silence detection for boundary snap failed, proceeding without it", "err", err)
		return nil
	}

	var silences []boundary.SilenceInterval
	var openStart float64
	haveOpen := false
	for _, line := range splitLines(out) {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				openStart = v
				haveOpen = true
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && haveOpen {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				silences = append(silences, boundary.SilenceInterval{StartS: openStart, EndS: v})
			}
			haveOpen = false
		}
	}
	return silences
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func primaryMethod(sources []signals.SignalSource) signals.Method {
	for _, s := range sources {
		if s.Method == signals.MethodHeatmap && !s.Empty() {
			return signals.MethodHeatmap
		}
	}
	best := signals.Method("")
	bestWeight := -1.0
	for _, s := range sources {
		if s.Empty() {
			continue
		}
		if s.Weight > bestWeight {
			bestWeight = s.Weight
			best = s.Method
		}
	}
	return best
}

func usedMethods(sources []signals.SignalSource) []signals.Method {
	var methods []signals.Method
	for _, s := range sources {
		if !s.Empty() {
			methods = append(methods, s.Method)
		}
	}
	return methods
}

// sourceEmpty is overridden by callers that want to record a metric;
// handlers wires this to metrics.Metrics.ProbeEmptyCount, keeping this
// package free of a metrics dependency it doesn't otherwise need.
var sourceEmpty = func(signals.Method) {}

// OnProbeEmpty installs a callback fired once per empty C1 source in Run.
func OnProbeEmpty(f func(signals.Method)) {
	sourceEmpty = f
}
