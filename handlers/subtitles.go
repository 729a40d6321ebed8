package handlers

import (
	"math"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/errors"
	"github.com/livepeer/catalyst-api/log"
)

type subtitleSegmentRequest struct {
	ID     string  `json:"id"`
	StartS float64 `json:"startS"`
	EndS   float64 `json:"endS"`
}

type subtitlesRequest struct {
	URL      string                   `json:"url"`
	Segments []subtitleSegmentRequest `json:"segments"`
}

type subtitlesResponse struct {
	Subtitles map[string][]clients.SubtitleEntry `json:"subtitles"`
}

// Subtitles implements POST /api/subtitles (spec.md §6): a preview
// endpoint that transcribes the source once and slices the result to
// each requested segment, so the UI can show (and let users edit)
// captions before committing to a /api/cut job.
func (h *HighlightAPIHandlers) Subtitles() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var body subtitlesRequest
		if !decodeAndValidate(w, req, "Subtitles", &body) {
			return
		}
		requestID := req.Header.Get("X-Request-Id")

		full, err := h.Transcriber.Transcribe(requestID, body.URL)
		if err != nil {
			log.LogError(requestID, "transcription failed for subtitles preview", err)
			errors.WriteHTTPInternalServerError(w, "transcription failed", err)
			return
		}

		out := make(map[string][]clients.SubtitleEntry, len(body.Segments))
		for _, seg := range body.Segments {
			out[seg.ID] = sliceAndRebase(full, seg.StartS, seg.EndS)
		}

		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: out})
	}
}

func sliceAndRebase(entries []clients.SubtitleEntry, startS, endS float64) []clients.SubtitleEntry {
	var out []clients.SubtitleEntry
	for _, e := range entries {
		if e.EndS <= startS || e.StartS >= endS {
			continue
		}
		out = append(out, clients.SubtitleEntry{
			StartS: math.Max(0, e.StartS-startS),
			EndS:   math.Min(endS-startS, e.EndS-startS),
			Text:   e.Text,
		})
	}
	return out
}
