// Package handlers implements C8, the HTTP surface over the analysis and
// job-orchestration core (spec.md §4.8, §6). Grounded on the teacher's
// handlers package: a handlers-collection struct holding every
// collaborator, httprouter.Handle-returning methods, and gojsonschema
// request validation ahead of json.Unmarshal.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/xeipuuv/gojsonschema"

	"github.com/livepeer/catalyst-api/autodetect"
	"github.com/livepeer/catalyst-api/batch"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/errors"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/metrics"
	"github.com/livepeer/catalyst-api/pipeline"
	"github.com/livepeer/catalyst-api/progress"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
)

func init() {
	autodetect.OnProbeEmpty(metricsProbeEmpty)
}

// HighlightAPIHandlers holds every collaborator the API surface needs;
// one instance is shared across all requests.
type HighlightAPIHandlers struct {
	Coordinator *pipeline.Coordinator
	Hub         *progress.Hub

	Downloader  clients.Downloader
	Transcoder  clients.Transcoder
	Transcriber clients.Transcriber
	Prober      video.Prober

	Heatmap  signals.HeatmapProbe
	Audio    signals.AudioProbe
	Scene    signals.SceneProbe
	Comments signals.CommentProbe

	OutputDir string

	Batches *batch.Tracker
}

// decodeAndValidate reads req's body, validates it against the named
// compiled schema, and unmarshals it into dst. Every POST handler starts
// this way, the same shape as the teacher's TranscodeSegment handler.
func decodeAndValidate(w http.ResponseWriter, req *http.Request, schemaName string, dst interface{}) bool {
	schema := inputSchemasCompiled[schemaName]

	payload, err := io.ReadAll(req.Body)
	if err != nil {
		errors.WriteHTTPInternalServerError(w, "cannot read body", err)
		return false
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		errors.WriteHTTPInternalServerError(w, "body schema validation failed", err)
		return false
	}
	if !result.Valid() {
		errors.WriteHTTPBadBodySchema(schemaName, w, result.Errors())
		return false
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		errors.WriteHTTPBadRequest(w, "invalid request payload", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.LogNoRequestID("failed to encode JSON response", "err", err)
	}
}

func metricsProbeEmpty(method signals.Method) {
	metrics.Metrics.ProbeEmptyCount.WithLabelValues(string(method)).Inc()
}
