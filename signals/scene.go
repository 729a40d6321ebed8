package signals

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/log"
)

var showinfoPtsRe = regexp.MustCompile(`pts_time:([0-9.]+)`)

// SceneProbe runs a single scene-change detection pass, downsampling fps
// for long inputs and bucketing detected cut timestamps into windows
// (spec.md §4.1).
type SceneProbe struct {
	Transcoder clients.Transcoder
}

func (p SceneProbe) Probe(requestID, mediaPath string, durationS float64) SignalSource {
	fps, timeout := sceneParamsForDuration(durationS)

	out, err := p.Transcoder.SceneChanges(
		context.Background(), mediaPath, config.SceneChangeThreshold, fps, config.SceneScaleWidth, timeout)
	if err != nil {
		log.Log(requestID, "scene probe failed, using any partial output", "err", err)
	}

	timestamps := parseSceneTimestamps(out)
	if len(timestamps) == 0 {
		return SignalSource{Method: MethodScene}
	}

	points := bucketCounts(timestamps, config.SceneProbeWindowS, durationS)
	normalizeMinMax(points)
	return SignalSource{Method: MethodScene, Weight: config.WeightScene, Points: points}
}

// sceneParamsForDuration picks the fps cap and the per-length-class
// timeout the scene probe observes (spec.md §4.1): long inputs (>30 min)
// downsample to 2 fps, very long (>2h) to 1 fps; timeouts scale
// 90/120/180s accordingly and yield partial results rather than failing.
func sceneParamsForDuration(durationS float64) (fps int, timeout time.Duration) {
	switch {
	case durationS > config.SceneVeryLongInputS:
		return config.SceneFPSVeryLong, 180 * time.Second
	case durationS > config.SceneLongInputS:
		return config.SceneFPSLong, 120 * time.Second
	default:
		return config.SceneFPSShort, 90 * time.Second
	}
}

func parseSceneTimestamps(out string) []float64 {
	var ts []float64
	for _, line := range splitLines(out) {
		if m := showinfoPtsRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				ts = append(ts, v)
			}
		}
	}
	return ts
}

// bucketCounts aggregates event timestamps into windowS buckets and
// returns raw counts as intensity, ready for normalizeMinMax.
func bucketCounts(timestamps []float64, windowS, durationS float64) []IntensityPoint {
	if durationS <= 0 {
		for _, t := range timestamps {
			if t > durationS {
				durationS = t
			}
		}
	}
	nBuckets := int(durationS/windowS) + 1
	counts := make([]float64, nBuckets)
	for _, t := range timestamps {
		idx := int(t / windowS)
		if idx < 0 {
			idx = 0
		}
		if idx >= nBuckets {
			idx = nBuckets - 1
		}
		counts[idx]++
	}
	points := make([]IntensityPoint, 0, nBuckets)
	for i, c := range counts {
		points = append(points, IntensityPoint{
			StartMs:   int64(float64(i) * windowS * 1000),
			EndMs:     int64(float64(i+1) * windowS * 1000),
			Intensity: c,
		})
	}
	return points
}
