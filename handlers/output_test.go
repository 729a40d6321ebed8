package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

func TestOutputServesAClip(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("fake mp4 bytes"), 0o644))

	h := &HighlightAPIHandlers{OutputDir: dir}
	req := httptest.NewRequest(http.MethodGet, "/output/clip.mp4", nil)
	w := httptest.NewRecorder()

	h.Output()(w, req, httprouter.Params{{Key: "filename", Value: "clip.mp4"}})

	require.Equal(http.StatusOK, w.Code)
	require.Equal("fake mp4 bytes", w.Body.String())
}

func TestOutputRejectsPathTraversal(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	h := &HighlightAPIHandlers{OutputDir: dir}
	req := httptest.NewRequest(http.MethodGet, "/output/..", nil)
	w := httptest.NewRecorder()

	h.Output()(w, req, httprouter.Params{{Key: "filename", Value: ".."}})

	require.Equal(http.StatusNotFound, w.Code)
}
