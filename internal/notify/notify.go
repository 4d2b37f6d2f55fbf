// Package notify sends desktop notifications via D-Bus.
package notify

import (
	"fmt"
	"sync"

	"github.com/llehouerou/castdeck/internal/episode"
	"github.com/llehouerou/castdeck/internal/errmsg"
	"github.com/llehouerou/castdeck/internal/ui/playerbar"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification categories for generation runs.
const (
	CategoryTransfer         = "transfer"
	CategoryTransferComplete = "transfer.complete"
	CategoryTransferError    = "transfer.error"
)

const (
	defaultTimeout = 5000
	neverExpire    = 0

	iconGenerating = "media-record"
	iconPublished  = "audio-x-generic"
	iconFailed     = "dialog-error"
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Category   string  // freedesktop category hint (optional)
	Transient  bool    // skip the notification history
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// nopNotifier is used when no notification daemon can be reached.
type nopNotifier struct{}

func (nopNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (nopNotifier) Close(uint32) error                  { return nil }

// Generating announces that audio generation started for an episode. It
// stays up until replaced by the outcome.
func Generating(title string) Notification {
	return Notification{
		Title:     "Generating episode",
		Body:      title,
		Icon:      iconGenerating,
		Category:  CategoryTransfer,
		Transient: true,
		Timeout:   neverExpire,
		Urgency:   UrgencyLow,
	}
}

// Published announces a freshly published episode.
func Published(e *episode.Episode) Notification {
	return Notification{
		Title:    "Episode published",
		Body:     fmt.Sprintf("%s (%s)", e.Title, playerbar.FormatTime(e.Duration)),
		Icon:     iconPublished,
		Category: CategoryTransferComplete,
		Timeout:  defaultTimeout,
		Urgency:  UrgencyNormal,
	}
}

// GenerationFailed reports a failed audio generation. Failures stay on
// screen until dismissed.
func GenerationFailed(title string, err error) Notification {
	return Notification{
		Title:    "Episode generation failed",
		Body:     errmsg.FormatWith(errmsg.OpEpisodeGenerate, title, err),
		Icon:     iconFailed,
		Category: CategoryTransferError,
		Timeout:  neverExpire,
		Urgency:  UrgencyCritical,
	}
}

// Progress keeps one notification per episode: the generating notice is
// replaced in place by the published or failed one.
type Progress struct {
	n   Notifier
	mu  sync.Mutex
	ids map[string]uint32 // episode ID -> notification ID
}

// NewProgress creates a Progress sending through n.
func NewProgress(n Notifier) *Progress {
	return &Progress{n: n, ids: make(map[string]uint32)}
}

// Started shows the generating notice for e.
func (p *Progress) Started(e *episode.Episode) error {
	return p.send(e.ID, Generating(e.Title), false)
}

// Published replaces e's notice with the published one.
func (p *Progress) Published(e *episode.Episode) error {
	return p.send(e.ID, Published(e), true)
}

// Failed replaces the notice for episode id with the failure.
func (p *Progress) Failed(id, title string, err error) error {
	return p.send(id, GenerationFailed(title, err), true)
}

func (p *Progress) send(episodeID string, n Notification, final bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n.ReplacesID = p.ids[episodeID]
	id, err := p.n.Notify(n)
	if err != nil {
		return err
	}
	if final {
		delete(p.ids, episodeID)
	} else {
		p.ids[episodeID] = id
	}
	return nil
}
