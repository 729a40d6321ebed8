package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/progress"
)

func TestJobReturnsLatestSnapshot(t *testing.T) {
	require := require.New(t)

	hub := progress.NewHub()
	job := hub.Submit()
	job.Report(progress.JobProgress{Status: progress.StatusDownloading, Message: "working"})

	h := &HighlightAPIHandlers{Hub: hub}
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	h.Job()(w, req, httprouter.Params{{Key: "id", Value: job.ID}})

	require.Equal(http.StatusOK, w.Code)
	require.Contains(w.Body.String(), "working")
}

func TestJobNotFound(t *testing.T) {
	h := &HighlightAPIHandlers{Hub: progress.NewHub()}
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	w := httptest.NewRecorder()

	h.Job()(w, req, httprouter.Params{{Key: "id", Value: "nope"}})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobProgressStreamsUntilDone(t *testing.T) {
	require := require.New(t)

	hub := progress.NewHub()
	job := hub.Submit()

	h := &HighlightAPIHandlers{Hub: hub}
	router := httprouter.New()
	router.GET("/api/jobs/:id/progress", h.JobProgress())
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/jobs/" + job.ID + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(err)
	defer conn.Close()

	job.Report(progress.JobProgress{Status: progress.StatusDone, Message: "done"})

	// Attach replays the job's latest (queued) state first, so read frames
	// until the terminal one arrives.
	var p progress.JobProgress
	for {
		require.NoError(conn.ReadJSON(&p))
		if p.IsTerminal() {
			break
		}
	}
	require.Equal(progress.StatusDone, p.Status)
	require.True(p.IsTerminal())
}
