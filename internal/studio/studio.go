// Package studio implements the episode workflows behind the HTTP API and
// the CLI: ownership-checked CRUD, profiles, and audio generation.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/castdeck/internal/blob"
	"github.com/llehouerou/castdeck/internal/episode"
	"github.com/llehouerou/castdeck/internal/player"
	"github.com/llehouerou/castdeck/internal/tts"
)

var (
	// ErrForbidden is returned when a user acts on another user's episode.
	ErrForbidden = errors.New("episode belongs to another user")
	// ErrAlreadyProcessing is returned when audio generation is requested
	// while a previous run has not finished.
	ErrAlreadyProcessing = episode.ErrAlreadyProcessing
)

const defaultProcessingTimeout = 15 * time.Minute

// Config wires a Service.
type Config struct {
	Episodes    episode.Store
	Profiles    episode.ProfileStore
	Synthesizer tts.Synthesizer
	Blobs       blob.Store
	Logger      logrus.FieldLogger
	// ProcessingTimeout is how long a PROCESSING episode blocks new
	// generation runs. After that the run is assumed dead.
	ProcessingTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs episode workflows.
type Service struct {
	episodes episode.Store
	profiles episode.ProfileStore
	synth    tts.Synthesizer
	blobs    blob.Store
	log      logrus.FieldLogger
	now      func() time.Time

	processingTimeout time.Duration
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = defaultProcessingTimeout
	}
	return &Service{
		episodes: cfg.Episodes,
		profiles: cfg.Profiles,
		synth:    cfg.Synthesizer,
		blobs:    cfg.Blobs,
		log:      cfg.Logger.WithField("component", "studio"),
		now:      cfg.Now,

		processingTimeout: cfg.ProcessingTimeout,
	}
}

// CreateEpisode creates a draft owned by userID.
func (s *Service) CreateEpisode(ctx context.Context, userID string, d episode.Draft) (*episode.Episode, error) {
	return s.episodes.Create(ctx, userID, d)
}

// ListEpisodes returns userID's episodes, newest first.
func (s *Service) ListEpisodes(ctx context.Context, userID string) ([]episode.Episode, error) {
	return s.episodes.ListByUser(ctx, userID)
}

// GetEpisode returns an episode owned by userID.
func (s *Service) GetEpisode(ctx context.Context, userID, id string) (*episode.Episode, error) {
	e, err := s.episodes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrForbidden
	}
	return e, nil
}

// UpdateEpisode edits an episode owned by userID.
func (s *Service) UpdateEpisode(ctx context.Context, userID, id string, d episode.Draft) (*episode.Episode, error) {
	if _, err := s.GetEpisode(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.episodes.Update(ctx, id, d)
}

// DeleteEpisode deletes an episode owned by userID along with its audio.
func (s *Service) DeleteEpisode(ctx context.Context, userID, id string) error {
	e, err := s.GetEpisode(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.episodes.Delete(ctx, id); err != nil {
		return err
	}
	if key := blob.KeyFromURL(e.AudioURL); key != "" {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("failed to delete audio")
		}
	}
	return nil
}

// GetProfile returns userID's profile, or an empty one if none was saved.
func (s *Service) GetProfile(ctx context.Context, userID string) (*episode.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, episode.ErrNotFound) {
		return &episode.Profile{UserID: userID}, nil
	}
	return p, err
}

// SaveProfile creates or replaces userID's profile.
func (s *Service) SaveProfile(ctx context.Context, userID, displayName, bio string) (*episode.Profile, error) {
	p := episode.Profile{
		UserID:      userID,
		DisplayName: strings.TrimSpace(displayName),
		Bio:         strings.TrimSpace(bio),
		UpdatedAt:   s.now(),
	}
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GenerateAudio synthesizes the episode script, stores the audio and
// publishes the episode. The episode is PROCESSING while this runs and
// FAILED if any step after that fails. Returns ErrAlreadyProcessing while
// another run holds the episode.
func (s *Service) GenerateAudio(ctx context.Context, userID, id string) (*episode.Episode, error) {
	return s.generateAudio(ctx, userID, id, false)
}

// ForceGenerateAudio is GenerateAudio without the in-progress check, for
// episodes left PROCESSING by a run that died.
func (s *Service) ForceGenerateAudio(ctx context.Context, userID, id string) (*episode.Episode, error) {
	return s.generateAudio(ctx, userID, id, true)
}

func (s *Service) generateAudio(ctx context.Context, userID, id string, force bool) (*episode.Episode, error) {
	e, err := s.GetEpisode(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.Script) == "" {
		return nil, episode.ErrEmptyScript
	}

	log := s.log.WithFields(logrus.Fields{"episode": id, "user": userID})
	if force {
		err = s.episodes.SetStatus(ctx, id, episode.StatusProcessing)
	} else {
		err = s.episodes.ClaimProcessing(ctx, id, s.now().Add(-s.processingTimeout))
	}
	if err != nil {
		return nil, err
	}

	published, err := s.generate(ctx, log, e)
	if err != nil {
		log.WithError(err).Error("audio generation failed")
		if serr := s.episodes.SetStatus(context.WithoutCancel(ctx), id, episode.StatusFailed); serr != nil {
			log.WithError(serr).Error("failed to mark episode failed")
		}
		return nil, err
	}
	return published, nil
}

func (s *Service) generate(ctx context.Context, log logrus.FieldLogger, e *episode.Episode) (*episode.Episode, error) {
	start := s.now()
	audio, err := s.synth.Synthesize(ctx, e.Script)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	data := audio.Data
	if audio.Ext == player.FormatMP3 {
		artist := s.artistName(ctx, e.UserID)
		tagged, err := tagMP3(data, e, artist, start.Year())
		if err != nil {
			log.WithError(err).Warn("failed to tag audio, storing untagged")
		} else {
			data = tagged
		}
	}

	duration, err := player.Probe(data, audio.Ext)
	if err != nil {
		log.WithError(err).Warn("could not determine audio duration")
		duration = 0
	}

	key := fmt.Sprintf("%s-%d.%s", e.ID, start.Unix(), audio.Ext)
	url, err := s.blobs.Put(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	publishedAt := s.now()
	if err := s.episodes.Publish(ctx, e.ID, url, duration, publishedAt); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	if old := blob.KeyFromURL(e.AudioURL); old != "" && old != key {
		if err := s.blobs.Delete(ctx, old); err != nil {
			log.WithError(err).WithField("key", old).Warn("failed to delete previous audio")
		}
	}

	log.WithFields(logrus.Fields{
		"key":      key,
		"duration": duration,
		"elapsed":  publishedAt.Sub(start).Round(time.Millisecond),
	}).Info("episode published")
	return s.episodes.Get(ctx, e.ID)
}

func (s *Service) artistName(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil || p.DisplayName == "" {
		return "castdeck"
	}
	return p.DisplayName
}
