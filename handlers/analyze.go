package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/autodetect"
	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/errors"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
	"github.com/livepeer/catalyst-api/virality"
)

type analyzeSettings struct {
	TopN               int     `json:"topN"`
	MinDurationS       float64 `json:"minDurationS"`
	MaxDurationS       float64 `json:"maxDurationS"`
	MinGapS            float64 `json:"minGapS"`
	IntensityThreshold float64 `json:"intensityThreshold"`
}

type analyzeRequest struct {
	URL      string           `json:"url"`
	Settings *analyzeSettings `json:"settings"`
}

type detectionInfo struct {
	Primary signals.Method   `json:"primary"`
	Sources []signals.Method `json:"sources"`
}

type segmentResponse struct {
	ID            string  `json:"id"`
	StartS        float64 `json:"startS"`
	EndS          float64 `json:"endS"`
	DurationS     float64 `json:"durationS"`
	AvgIntensity  float64 `json:"avgIntensity"`
	PeakIntensity float64 `json:"peakIntensity"`
	BoundaryType  string  `json:"boundaryType"`
}

type analyzeResponse struct {
	Video          video.InputVideo               `json:"video"`
	Heatmap        combiner.CombinedHeatmap        `json:"heatmap"`
	Segments       []segmentResponse               `json:"segments"`
	Detection      detectionInfo                   `json:"detection"`
	ViralityScores map[string]virality.Breakdown `json:"viralityScores"`
}

// Analyze implements POST /api/analyze (spec.md §4.8, §6): runs the full
// C1-C5 pipeline against the source URL directly (ffmpeg/ffprobe can read
// a remote URL without a local download) and returns every candidate
// segment with its virality breakdown.
func (h *HighlightAPIHandlers) Analyze() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var body analyzeRequest
		if !decodeAndValidate(w, req, "Analyze", &body) {
			return
		}
		requestID := req.Header.Get("X-Request-Id")

		detectOpts := detect.DefaultOptions()
		combineOpts := combiner.DefaultOptions()
		if body.Settings != nil {
			applySettings(&detectOpts, body.Settings)
		}

		result, err := h.probes().Run(requestID, body.URL, detectOpts, combineOpts)
		if err != nil {
			errors.WriteHTTPBadRequest(w, "failed to probe source video", err)
			return
		}

		respSegments := make([]segmentResponse, 0, len(result.Segments))
		for _, seg := range result.Segments {
			respSegments = append(respSegments, segmentResponse{
				ID:            seg.ID,
				StartS:        seg.StartS,
				EndS:          seg.EndS,
				DurationS:     seg.DurationS,
				AvgIntensity:  seg.AvgIntensity,
				PeakIntensity: seg.PeakIntensity,
				BoundaryType:  string(seg.BoundaryType),
			})
		}

		writeJSON(w, http.StatusOK, analyzeResponse{
			Video:   result.Video,
			Heatmap: result.Heatmap,
			Segments: respSegments,
			Detection: detectionInfo{
				Primary: result.Detection.Primary,
				Sources: result.Detection.Sources,
			},
			ViralityScores: result.ViralityScores,
		})
	}
}

func (h *HighlightAPIHandlers) probes() autodetect.Probes {
	return autodetect.Probes{
		Prober:     h.Prober,
		Heatmap:    h.Heatmap,
		Audio:      h.Audio,
		Scene:      h.Scene,
		Comments:   h.Comments,
		Transcoder: h.Transcoder,
	}
}

func applySettings(opts *detect.Options, s *analyzeSettings) {
	if s.TopN > 0 {
		opts.TopN = s.TopN
	}
	if s.MinDurationS > 0 {
		opts.MinDurationS = s.MinDurationS
	}
	if s.MaxDurationS > 0 {
		opts.MaxDurationS = s.MaxDurationS
	}
	if s.MinGapS > 0 {
		opts.MinGapS = s.MinGapS
	}
	if s.IntensityThreshold > 0 {
		opts.IntensityThreshold = s.IntensityThreshold
	}
}
