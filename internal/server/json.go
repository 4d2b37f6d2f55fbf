package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/llehouerou/castdeck/internal/episode"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

type episodeJSON struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Script          string     `json:"script"`
	AudioURL        string     `json:"audioUrl,omitempty"`
	Status          string     `json:"status"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

func toEpisodeJSON(e *episode.Episode) episodeJSON {
	return episodeJSON{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Script:          e.Script,
		AudioURL:        e.AudioURL,
		Status:          e.Status.String(),
		DurationSeconds: e.Duration.Seconds(),
		CreatedAt:       e.CreatedAt,
		PublishedAt:     e.PublishedAt,
	}
}

type draftJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Script      string `json:"script"`
}

func (d draftJSON) draft() episode.Draft {
	return episode.Draft{Title: d.Title, Description: d.Description, Script: d.Script}
}

type profileJSON struct {
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}
