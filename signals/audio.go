package signals

import (
	"context"
	"regexp"
	"strconv"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/log"
)

var (
	ptsTimeRe = regexp.MustCompile(`pts_time:([0-9.]+)`)
	rmsRe     = regexp.MustCompile(`lavfi\.astats\.Overall\.RMS_level=(-?[0-9.]+)`)

	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// AudioProbe runs the transcoder's per-frame RMS pass, clamping loudness
// into [0,1], with a silence-detection fallback when the RMS pass yields
// nothing usable (spec.md §4.1).
type AudioProbe struct {
	Transcoder clients.Transcoder
	WindowS    float64
}

func NewAudioProbe(t clients.Transcoder) AudioProbe {
	return AudioProbe{Transcoder: t, WindowS: config.AudioProbeWindowS}
}

func (p AudioProbe) Probe(requestID, mediaPath string, durationS float64) SignalSource {
	windowS := p.WindowS
	if windowS <= 0 {
		windowS = config.AudioProbeWindowS
	}

	out, err := p.Transcoder.AudioStats(context.Background(), mediaPath, windowS)
	if err == nil {
		if points := parseAudioStats(out, windowS); len(points) > 0 {
			normalizeMinMax(points)
			return SignalSource{Method: MethodAudio, Weight: config.WeightAudio, Points: points}
		}
	} else {
		log.Log(requestID, "audio RMS pass failed, falling back to silence detection", "err", err)
	}

	silenceOut, err := p.Transcoder.SilenceDetect(context.Background(), mediaPath, config.AudioSilenceNoiseDB, config.AudioSilenceMinS)
	if err != nil {
		log.Log(requestID, "audio probe empty", "err", err)
		return SignalSource{Method: MethodAudio}
	}
	points := silenceFallbackPoints(silenceOut, windowS, durationS)
	normalizeMinMax(points)
	return SignalSource{Method: MethodAudio, Weight: config.WeightAudio, Points: points}
}

// parseAudioStats reads interleaved `pts_time:` / `RMS_level=` lines
// emitted by the astats+ametadata filter chain and maps dB loudness
// linearly onto [0,1], clamped to [-60,-10] dB.
func parseAudioStats(out string, windowS float64) []IntensityPoint {
	var points []IntensityPoint
	var lastPts float64
	havePts := false
	for _, line := range splitLines(out) {
		if m := ptsTimeRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				lastPts = v
				havePts = true
			}
			continue
		}
		if m := rmsRe.FindStringSubmatch(line); m != nil && havePts {
			db, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			db = clamp(db, config.AudioDBFloor, config.AudioDBCeiling)
			intensity := (db - config.AudioDBFloor) / (config.AudioDBCeiling - config.AudioDBFloor)
			startMs := int64((lastPts) * 1000)
			points = append(points, IntensityPoint{
				StartMs:   startMs,
				EndMs:     startMs + int64(windowS*1000),
				Intensity: intensity,
			})
		}
	}
	return points
}

// silenceFallbackPoints buckets the video into windowS-sized windows and
// derives intensity from how much of each window overlaps a silence
// interval: 1 - (overlapRatio * 0.9) (spec.md §4.1).
func silenceFallbackPoints(out string, windowS, durationS float64) []IntensityPoint {
	type interval struct{ start, end float64 }
	var silences []interval
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
				silences = append(silences, interval{openStart, v})
			}
			haveOpen = false
		}
	}

	if durationS <= 0 {
		return nil
	}
	nBuckets := int(durationS/windowS) + 1
	points := make([]IntensityPoint, 0, nBuckets)
	for i := 0; i < nBuckets; i++ {
		wStart := float64(i) * windowS
		wEnd := wStart + windowS
		if wEnd > durationS {
			wEnd = durationS
		}
		if wEnd <= wStart {
			break
		}
		overlap := 0.0
		for _, s := range silences {
			o := intervalOverlap(wStart, wEnd, s.start, s.end)
			overlap += o
		}
		ratio := clamp(overlap/(wEnd-wStart), 0, 1)
		points = append(points, IntensityPoint{
			StartMs:   int64(wStart * 1000),
			EndMs:     int64(wEnd * 1000),
			Intensity: 1 - ratio*0.9,
		})
	}
	return points
}

func intervalOverlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
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
