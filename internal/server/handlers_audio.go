package server

import (
	"errors"
	"net/http"

	"github.com/llehouerou/castdeck/internal/blob"
)

const audioCacheControl = "public, max-age=3600, immutable"

// handleAudio streams a stored object. Range requests are supported so that
// players can seek without downloading the whole file.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, obj, err := s.blobs.Open(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
		http.Error(w, "Audio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", audioCacheControl)
	http.ServeContent(w, r, obj.Key, obj.ModTime, rc)
}
