package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/errors"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/progress"
)

type jobResponse struct {
	ID       string               `json:"id"`
	Progress progress.JobProgress `json:"progress"`
}

// Job implements GET /api/jobs/{id} (spec.md §6): a single snapshot of
// the job's latest known progress, for clients that poll instead of
// streaming.
func (h *HighlightAPIHandlers) Job() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		jobID := ps.ByName("id")
		job, ok := h.Hub.Job(jobID)
		if !ok {
			errors.WriteHTTPNotFound(w, "job not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{ID: jobID, Progress: job.Latest()})
	}
}

// progressUpgrader upgrades GET /api/jobs/{id}/progress to a WebSocket;
// the teacher's own progress path has no live-push transport of its own,
// so this is adopted from the pack (petervdpas-goop2's call-events
// WebSocket) rather than invented from scratch.
var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// JobProgress implements GET /api/jobs/{id}/progress (spec.md §4.7, §6):
// one JSON frame per progress update, closing once a terminal status is
// reported or the client disconnects.
func (h *HighlightAPIHandlers) JobProgress() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		jobID := ps.ByName("id")
		requestID := req.Header.Get("X-Request-Id")

		handle, ok := h.Hub.Attach(jobID)
		if !ok {
			errors.WriteHTTPNotFound(w, "job not found", nil)
			return
		}
		defer h.Hub.Detach(jobID, handle)

		conn, err := progressUpgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Log(requestID, "progress websocket upgrade failed", "err", err, "job_id", jobID)
			return
		}
		defer conn.Close()

		// Drain inbound frames (pings, close) without blocking; the
		// client never sends us anything meaningful on this socket.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case p, open := <-handle.Events:
				if !open {
					return
				}
				if err := conn.WriteJSON(p); err != nil {
					return
				}
				if p.IsTerminal() {
					return
				}
			case <-req.Context().Done():
				return
			}
		}
	}
}
