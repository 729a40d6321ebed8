package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	"github.com/livepeer/catalyst-api/errors"
)

// Output implements GET /output/{filename} (spec.md §6): serves a
// finished clip's bytes straight off local disk. filepath.Base strips
// any directory components so the request can't escape OutputDir.
func (h *HighlightAPIHandlers) Output() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		filename := filepath.Base(ps.ByName("filename"))
		if filename == "." || filename == ".." || filename == string(filepath.Separator) {
			errors.WriteHTTPNotFound(w, "clip not found", nil)
			return
		}

		path := filepath.Join(h.OutputDir, filename)
		w.Header().Set("Content-Type", "video/mp4")
		http.ServeFile(w, req, path)
	}
}
