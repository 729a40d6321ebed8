// Package api implements C8's HTTP transport: router construction and
// the server lifecycle, grounded on the teacher's api/http.go (the same
// httprouter + middleware chain shape, pared down to this domain's
// endpoint set).
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/handlers"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/middleware"
)

func ListenAndServe(ctx context.Context, cli config.Cli, h *handlers.HighlightAPIHandlers) error {
	router := NewRouter(h)
	addr := fmt.Sprintf("0.0.0.0:%d", cli.Port)
	server := http.Server{Addr: addr, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoRequestID(
		"Starting Highlight Clip Engine API",
		"version", config.Version,
		"host", addr,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// NewRouter mounts the full C8 endpoint set (spec.md §6) behind request
// logging and CORS, the same middleware chain the teacher wraps every
// route in.
func NewRouter(h *handlers.HighlightAPIHandlers) *httprouter.Router {
	router := httprouter.New()
	withLogging := middleware.LogRequest()
	withCORS := middleware.AllowCORS()
	wrap := func(next httprouter.Handle) httprouter.Handle {
		return withLogging(withCORS(next))
	}

	router.GET("/ok", wrap(h.Ok()))

	router.POST("/api/analyze", wrap(h.Analyze()))
	router.POST("/api/subtitles", wrap(h.Subtitles()))
	router.POST("/api/cut", wrap(h.Cut()))
	router.GET("/api/jobs/:id", wrap(h.Job()))
	// The progress stream upgrades to a WebSocket; logging/CORS still run
	// ahead of the upgrade so failures there are captured uniformly.
	router.GET("/api/jobs/:id/progress", wrap(h.JobProgress()))
	router.POST("/api/batch", wrap(h.Batch()))
	router.GET("/api/batch/:id/progress", wrap(h.BatchProgress()))

	router.GET("/output/:filename", wrap(h.Output()))

	return router
}
