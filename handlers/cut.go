package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/pipeline"
)

type cutSegmentRequest struct {
	ID     string  `json:"id"`
	StartS float64 `json:"startS"`
	EndS   float64 `json:"endS"`
}

type cutRequest struct {
	URL             string                              `json:"url"`
	Segments        []cutSegmentRequest                 `json:"segments"`
	CropMode        string                               `json:"cropMode"`
	Captions        bool                                 `json:"captions"`
	VideoTitle      string                               `json:"videoTitle"`
	Quality         int                                  `json:"quality"`
	TranslateTo     string                               `json:"translateTo"`
	TranslateMode   string                               `json:"translateMode"`
	EditedSubtitles map[string][]clients.SubtitleEntry `json:"editedSubtitles"`
}

type cutResponse struct {
	JobID string `json:"jobId"`
}

var cropModeNames = map[string]clients.CropKind{
	"center":        clients.CropCenter,
	"blur_pad":      clients.CropBlurPad,
	"letterbox":     clients.CropLetterbox,
	"smart_reframe": clients.CropSmartReframe,
}

// Cut implements POST /api/cut (spec.md §6): validates the request,
// starts a job on the orchestrator, and returns its id immediately; the
// caller attaches to /api/jobs/{id}/progress to watch it run.
func (h *HighlightAPIHandlers) Cut() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var body cutRequest
		if !decodeAndValidate(w, req, "Cut", &body) {
			return
		}
		requestID := req.Header.Get("X-Request-Id")

		quality := body.Quality
		if _, ok := config.QualityPresets[quality]; !ok {
			quality = config.DefaultQuality
		}

		segments := make([]pipeline.ClipSpec, len(body.Segments))
		for i, s := range body.Segments {
			segments[i] = pipeline.ClipSpec{ID: s.ID, StartS: s.StartS, EndS: s.EndS}
		}

		jobID := h.Coordinator.StartCutJob(requestID, pipeline.CutRequest{
			URL:             body.URL,
			Segments:        segments,
			CropMode:        cropModeNames[body.CropMode],
			Captions:        body.Captions,
			VideoTitle:      body.VideoTitle,
			Quality:         quality,
			TranslateTo:     body.TranslateTo,
			TranslateMode:   body.TranslateMode,
			EditedSubtitles: body.EditedSubtitles,
		})

		writeJSON(w, http.StatusOK, cutResponse{JobID: jobID})
	}
}
