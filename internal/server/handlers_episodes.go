package server

import (
	"errors"
	"net/http"

	"github.com/llehouerou/castdeck/internal/episode"
	"github.com/llehouerou/castdeck/internal/studio"
	"github.com/llehouerou/castdeck/internal/tts"
)

// writeEpisodeError maps workflow errors onto HTTP statuses.
func (s *Server) writeEpisodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, episode.ErrNotFound), errors.Is(err, studio.ErrForbidden):
		// Other users' episodes are indistinguishable from missing ones.
		writeError(w, http.StatusNotFound, "episode not found")
	case errors.Is(err, episode.ErrTitleRequired), errors.Is(err, episode.ErrEmptyScript),
		errors.Is(err, tts.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, studio.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.studio.ListEpisodes(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]episodeJSON, 0, len(episodes))
	for i := range episodes {
		out = append(out, toEpisodeJSON(&episodes[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var body draftJSON
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.studio.CreateEpisode(r.Context(), sessionFrom(r.Context()).UserID, body.draft())
	if err != nil {
		s.writeEpisodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEpisodeJSON(e))
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	e, err := s.studio.GetEpisode(r.Context(), sessionFrom(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		s.writeEpisodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeJSON(e))
}

func (s *Server) handleUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	var body draftJSON
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.studio.UpdateEpisode(r.Context(), sessionFrom(r.Context()).UserID, r.PathValue("id"), body.draft())
	if err != nil {
		s.writeEpisodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeJSON(e))
}

func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.DeleteEpisode(r.Context(), sessionFrom(r.Context()).UserID, r.PathValue("id")); err != nil {
		s.writeEpisodeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	e, err := s.studio.GenerateAudio(r.Context(), sessionFrom(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		s.writeEpisodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpisodeJSON(e))
}
