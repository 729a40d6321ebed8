package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/batch"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/errors"
)

type batchRequest struct {
	URLs     []string `json:"urls"`
	CropMode string   `json:"cropMode"`
	Captions bool     `json:"captions"`
}

type batchResponse struct {
	BatchID   string `json:"batchId"`
	TotalURLs int    `json:"totalUrls"`
}

// Batch implements POST /api/batch (spec.md §6): up to 20 URLs are each
// auto-analyzed and cut into their single best highlight, fanned out
// across batch.Tracker's worker pool.
func (h *HighlightAPIHandlers) Batch() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		var body batchRequest
		if !decodeAndValidate(w, req, "Batch", &body) {
			return
		}
		if len(body.URLs) > config.MaxBatchURLs {
			errors.WriteHTTPBadRequest(w, "too many urls in batch request", nil)
			return
		}

		batchID := h.Batches.Submit(body.URLs, cropModeNames[body.CropMode], body.Captions)
		writeJSON(w, http.StatusOK, batchResponse{BatchID: batchID, TotalURLs: len(body.URLs)})
	}
}

type batchProgressResponse struct {
	BatchID  string         `json:"batchId"`
	Statuses []batch.Status `json:"statuses"`
}

// BatchProgress implements GET /api/batch/{id}/progress (spec.md §6): a
// snapshot of every URL's outcome so far within the batch. Unlike a
// single job's progress, batch status is polled rather than pushed,
// since a batch completes piecemeal over potentially minutes per URL.
func (h *HighlightAPIHandlers) BatchProgress() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		batchID := ps.ByName("id")
		statuses, ok := h.Batches.Statuses(batchID)
		if !ok {
			errors.WriteHTTPNotFound(w, "batch not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, batchProgressResponse{BatchID: batchID, Statuses: statuses})
	}
}
