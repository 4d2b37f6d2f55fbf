//go:build linux

// Package mpris exposes the terminal player on the session bus so desktop
// media keys and widgets can control it.
package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/castdeck/internal/playback"
)

// Adapter connects a playback.Controller to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts an MPRIS adapter for ctrl. title is reported as
// the track title.
func New(ctx context.Context, ctrl *playback.Controller, title string) (*Adapter, error) {
	a := &Adapter{
		server: server.NewServer("castdeck", &rootAdapter{}, newPlayerAdapter(ctx, ctrl, title)),
	}

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return "castdeck", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/wav", "audio/flac"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter on top of the
// controller's commands.
type playerAdapter struct {
	ctx   context.Context
	ctrl  *playback.Controller
	title string
}

func newPlayerAdapter(ctx context.Context, ctrl *playback.Controller, title string) *playerAdapter {
	return &playerAdapter{ctx: ctx, ctrl: ctrl, title: title}
}

// Single episode: there is nothing to skip to.
func (p *playerAdapter) Next() error     { return nil }
func (p *playerAdapter) Previous() error { return nil }

func (p *playerAdapter) Pause() error {
	if p.ctrl.Snapshot().IsPlaying {
		p.ctrl.TogglePlayPause(p.ctx)
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.ctrl.TogglePlayPause(p.ctx)
	return nil
}

func (p *playerAdapter) Play() error {
	if !p.ctrl.Snapshot().IsPlaying {
		p.ctrl.TogglePlayPause(p.ctx)
	}
	return nil
}

// Stop pauses and rewinds.
func (p *playerAdapter) Stop() error {
	_ = p.Pause()
	p.ctrl.CommitSeek(0)
	return nil
}

// Seek moves relative to the displayed position.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	cur := p.ctrl.Snapshot().CurrentTime
	p.ctrl.CommitSeek(cur + time.Duration(offset)*time.Microsecond)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.ctrl.CommitSeek(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.ctrl.Snapshot().Status() {
	case playback.StatusPlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatusPaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error)   { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.ctrl.Snapshot()
	if snap.Source == "" {
		return types.Metadata{}, nil
	}
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(snap.Source)),
		Length:  types.Microseconds(snap.Duration.Microseconds()),
		Title:   p.title,
		Artist:  []string{"castdeck"},
	}, nil
}

func (p *playerAdapter) Volume() (float64, error)  { return 1.0, nil }
func (p *playerAdapter) SetVolume(_ float64) error { return nil }

func (p *playerAdapter) Position() (int64, error) {
	return p.ctrl.Snapshot().CurrentTime.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) CanGoNext() (bool, error)     { return false, nil }
func (p *playerAdapter) CanGoPrevious() (bool, error) { return false, nil }

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.ctrl.Snapshot().Source != "", nil
}

func (p *playerAdapter) CanPause() (bool, error)   { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)    { return true, nil }
func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

func formatTrackID(source string) string {
	h := fnv.New64a()
	h.Write([]byte(source))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
