package signals

import (
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/log"
)

// HeatmapProbe asks the downloader for the platform's precomputed
// viewer-engagement curve. Values are assumed already 0..1; no
// renormalization is applied (spec.md §4.1).
type HeatmapProbe struct {
	Downloader clients.Downloader
}

func (p HeatmapProbe) Probe(requestID, videoURL string) SignalSource {
	points, err := p.Downloader.Heatmap(requestID, videoURL)
	if err != nil || len(points) == 0 {
		if err != nil {
			log.Log(requestID, "heatmap probe empty", "err", err)
		}
		return SignalSource{Method: MethodHeatmap}
	}

	out := make([]IntensityPoint, 0, len(points))
	for _, hp := range points {
		if hp.EndS <= hp.StartS {
			continue
		}
		out = append(out, IntensityPoint{
			StartMs:   int64(hp.StartS * 1000),
			EndMs:     int64(hp.EndS * 1000),
			Intensity: hp.Value,
		})
	}
	return SignalSource{Method: MethodHeatmap, Weight: 1.0, Points: out}
}
