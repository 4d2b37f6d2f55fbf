// Package episode defines the studio's domain types and persistence contracts.
package episode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an episode or profile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTitleRequired is returned when an episode has an empty title.
	ErrTitleRequired = errors.New("title is required")
	// ErrEmptyScript is returned when audio is requested for an episode
	// without a script.
	ErrEmptyScript = errors.New("script is empty")
	// ErrAlreadyProcessing is returned when audio generation is requested
	// while a previous run has not finished.
	ErrAlreadyProcessing = errors.New("audio generation already in progress")
)

// Status is the publication state of an episode.
//
//	DRAFT -> PROCESSING -> PUBLISHED
//	              |
//	              +-----> FAILED -> PROCESSING (retry)
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusProcessing Status = "PROCESSING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusProcessing:
		return StatusProcessing, nil
	case StatusPublished:
		return StatusPublished, nil
	case StatusFailed:
		return StatusFailed, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Episode is a single show entry owned by a user.
type Episode struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Script      string
	AudioURL    string
	Status      Status
	Duration    time.Duration
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// HasAudio reports whether the episode can be played.
func (e *Episode) HasAudio() bool {
	return e.AudioURL != ""
}

// Draft holds the user-editable fields of an episode.
type Draft struct {
	Title       string
	Description string
	Script      string
}

// Normalize trims the draft and validates it.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Script = strings.TrimSpace(d.Script)
	if d.Title == "" {
		return d, ErrTitleRequired
	}
	return d, nil
}

// Profile is a user's public profile.
type Profile struct {
	UserID      string
	DisplayName string
	Bio         string
	UpdatedAt   time.Time
}

// Store persists episodes.
type Store interface {
	Create(ctx context.Context, userID string, d Draft) (*Episode, error)
	Get(ctx context.Context, id string) (*Episode, error)
	ListByUser(ctx context.Context, userID string) ([]Episode, error)
	Update(ctx context.Context, id string, d Draft) (*Episode, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status Status) error
	// ClaimProcessing moves an episode to PROCESSING unless a run that
	// started at or after staleBefore already holds it, in which case it
	// returns ErrAlreadyProcessing.
	ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) error
	Publish(ctx context.Context, id, audioURL string, duration time.Duration, at time.Time) error
}

// ProfileStore persists profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
}
