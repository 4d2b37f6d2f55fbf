// Package app implements the terminal episode player.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/castdeck/internal/playback"
)

const defaultSeekStep = 5 * time.Second

// Options configures the player model.
type Options struct {
	Source   string
	Title    string
	Hint     time.Duration // expected duration, 0 when unknown
	SeekStep time.Duration
}

// Model is the bubbletea model driving one playback.Controller.
type Model struct {
	ctx  context.Context
	ctrl *playback.Controller
	sub  *playback.Subscription

	Source   string
	Title    string
	SeekStep time.Duration

	Snapshot playback.Snapshot
	Err      string
	Width    int

	// Seek gesture state. Each arrow key bumps SeekVersion; the commit fires
	// only for the latest version once the keys stop.
	Seeking     bool
	SeekTarget  time.Duration
	SeekVersion int

	Quitting bool
}

// New subscribes to ctrl and attaches it to opts.Source.
func New(ctx context.Context, ctrl *playback.Controller, opts Options) Model {
	if opts.SeekStep <= 0 {
		opts.SeekStep = defaultSeekStep
	}
	if opts.Title == "" {
		opts.Title = opts.Source
	}

	sub := ctrl.Subscribe()
	ctrl.Attach(opts.Source, opts.Hint)

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		sub:      sub,
		Source:   opts.Source,
		Title:    opts.Title,
		SeekStep: opts.SeekStep,
		Snapshot: ctrl.Snapshot(),
		Width:    80,
	}
}

// Init starts listening for controller events.
func (m Model) Init() tea.Cmd {
	return m.WatchPlayback()
}
