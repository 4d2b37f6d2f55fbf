// Package media defines the contract of an underlying audio decode primitive
// and the notifications it delivers to a playback controller.
package media

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotSeekable is returned by SetPosition while the resource cannot seek yet.
	ErrNotSeekable = errors.New("media not seekable")
	// ErrNotReady is returned by Play when no source has finished loading.
	ErrNotReady = errors.New("media not ready")
)

// EventKind identifies a class of notification.
type EventKind int

const (
	MetadataReady   EventKind = iota // Value: duration
	DurationChanged                  // Value: duration
	Playable
	PositionAdvanced // Value: position
	Ended
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case MetadataReady:
		return "MetadataReady"
	case DurationChanged:
		return "DurationChanged"
	case Playable:
		return "Playable"
	case PositionAdvanced:
		return "PositionAdvanced"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Event is a notification from an Element.
type Event struct {
	Kind  EventKind
	Value time.Duration
}

// Listener receives notifications.
type Listener func(Event)

// Element is a decode primitive bound to at most one source at a time.
//
// Implementations must not invoke listeners synchronously from within any of
// the command methods below; notifications are delivered in order from the
// element's own dispatcher. Once Load returns, no notification produced for
// the previous source is delivered to any listener.
type Element interface {
	// Load replaces the current source and starts fetching its metadata.
	Load(source string) error
	// Play starts or resumes playback. It returns once the platform accepted
	// or rejected the request.
	Play(ctx context.Context) error
	Pause()
	// SetPosition moves the playback position. Returns ErrNotSeekable if the
	// resource cannot seek yet.
	SetPosition(pos time.Duration) error
	Position() time.Duration
	// Duration returns the media duration, or false while it is unknown.
	Duration() (time.Duration, bool)
	// Listen registers l for notifications until unlisten is called.
	Listen(l Listener) (unlisten func())
}
