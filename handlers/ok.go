package handlers

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/log"
)

func (c *HighlightAPIHandlers) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if _, err := io.WriteString(w, "OK"); err != nil {
			log.LogNoRequestID("failed to write health check response", "err", err, "path", req.URL.Path)
		}
	}
}
