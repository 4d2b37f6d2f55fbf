// Package playback provides the playback controller: a play/pause/seek and
// progress contract over a media.Element whose duration and buffering state
// become known asynchronously.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/castdeck/internal/media"
)

const (
	defaultPollInterval    = 300 * time.Millisecond
	defaultPollAttempts    = 8
	defaultResyncTolerance = 500 * time.Millisecond
)

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	// PollInterval is both the grace window before the first duration poll
	// and the spacing between polls.
	PollInterval time.Duration
	// PollAttempts bounds the number of duration polls per source.
	PollAttempts int
	// ResyncTolerance is the drift between the element position and the
	// displayed position that triggers a position write before playing.
	ResyncTolerance time.Duration
	// Logger receives controller diagnostics. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = defaultPollAttempts
	}
	if o.ResyncTolerance <= 0 {
		o.ResyncTolerance = defaultResyncTolerance
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Controller owns one media.Element exclusively.
//
// Commands and notifications are serialized; each notification handler is
// bound to the generation it was registered for, so notifications from a
// replaced source are dropped.
type Controller struct {
	mu   sync.Mutex
	el   media.Element
	opts Options
	log  logrus.FieldLogger

	attached     bool
	gen          uint64
	unlisten     func()
	poll         durationPoll
	playPending  bool
	source       string
	hint         time.Duration
	realDuration bool

	isPlaying   bool
	isSeeking   bool
	currentTime time.Duration
	duration    time.Duration

	subs   []*Subscription
	subsMu sync.Mutex
	closed bool
}

// New creates a controller over el. The controller is detached until Attach.
func New(el media.Element, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		el:   el,
		opts: opts,
		log:  opts.Logger.WithField("component", "playback"),
	}
}

// Attach binds the controller to source, resetting all playback state.
// hint is used as the duration until the real one is observed; pass 0 when
// unknown.
func (c *Controller) Attach(source string, hint time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLocked()
	c.gen++
	gen := c.gen

	c.attached = true
	c.source = source
	c.hint = max(hint, 0)
	c.isPlaying = false
	c.isSeeking = false
	c.currentTime = 0
	c.duration = c.hint
	c.realDuration = false
	c.playPending = false

	// Load before Listen: the element drops anything queued for the previous
	// source once Load returns, so the new listener only sees this source.
	err := c.el.Load(source)
	c.unlisten = c.el.Listen(func(e media.Event) { c.handleEvent(gen, e) })
	if err != nil {
		c.log.WithError(err).WithField("source", source).Warn("load failed")
		c.publishErrorLocked(OpLoad, fmt.Errorf("%w: %w", ErrLoadFailed, err))
		c.publishLocked()
		return
	}

	c.startPollLocked(gen)
	c.publishLocked()
}

// Detach unregisters from the element and cancels the duration poll.
// Calling it more than once has no further effect.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return
	}
	c.detachLocked()
	c.publishLocked()
}

func (c *Controller) detachLocked() {
	if !c.attached {
		return
	}
	if c.unlisten != nil {
		c.unlisten()
		c.unlisten = nil
	}
	c.poll.cancel()
	if c.isPlaying {
		c.el.Pause()
	}
	c.gen++
	c.attached = false
	c.isPlaying = false
	c.isSeeking = false
	c.playPending = false
	c.source = ""
}

// SetDurationHint replaces the caller-supplied duration. It only affects the
// displayed duration while no real duration has been observed.
func (c *Controller) SetDurationHint(hint time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hint = max(hint, 0)
	if !c.attached || c.realDuration {
		return
	}
	c.duration = c.hint
	c.currentTime = c.clampLocked(c.currentTime)
	c.publishLocked()
}

// TogglePlayPause pauses when playing, otherwise asks the element to play.
// It blocks until the element accepts or rejects the play request; a
// rejection is reported as an ErrorEvent and leaves the controller paused.
// A toggle issued while a play request is in flight is ignored.
func (c *Controller) TogglePlayPause(ctx context.Context) {
	c.mu.Lock()
	if !c.attached || c.playPending {
		c.mu.Unlock()
		return
	}
	if c.isPlaying {
		c.el.Pause()
		c.isPlaying = false
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	gen := c.gen
	source := c.source
	if drift := c.el.Position() - c.currentTime; drift > c.opts.ResyncTolerance || drift < -c.opts.ResyncTolerance {
		if err := c.el.SetPosition(c.currentTime); err != nil {
			c.publishErrorLocked(OpSeek, fmt.Errorf("%w: %w", ErrSeekNotReady, err))
		}
	}
	c.playPending = true
	c.mu.Unlock()

	err := c.el.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.WithField("source", source).Debug("dropping play result for replaced source")
		if err == nil && !c.attached {
			c.el.Pause()
		}
		return
	}
	c.playPending = false
	if err != nil {
		c.log.WithError(err).WithField("source", source).Warn("play rejected")
		c.publishErrorLocked(OpPlay, fmt.Errorf("%w: %w", ErrPlayRejected, err))
		return
	}
	c.isPlaying = true
	c.publishLocked()
}

// BeginSeek starts a seek gesture. Position notifications are ignored until
// CommitSeek.
func (c *Controller) BeginSeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached || c.isSeeking {
		return
	}
	c.isSeeking = true
	c.publishLocked()
}

// PreviewSeek updates the displayed position without moving the element.
func (c *Controller) PreviewSeek(target time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return
	}
	c.currentTime = c.clampLocked(target)
	c.publishLocked()
}

// CommitSeek moves the element to target and ends the seek gesture. If the
// element is not seekable yet the displayed position still reflects target
// until the next position notification corrects it.
func (c *Controller) CommitSeek(target time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		return
	}
	pos := c.clampLocked(target)
	if err := c.el.SetPosition(pos); err != nil {
		c.log.WithError(err).WithField("position", pos).Debug("seek not ready")
		c.publishErrorLocked(OpSeek, fmt.Errorf("%w: %w", ErrSeekNotReady, err))
	}
	c.currentTime = pos
	c.isSeeking = false
	c.publishLocked()
}

// Snapshot returns the current read model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	if c.closed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Close detaches the controller and ends all subscriptions.
func (c *Controller) Close() error {
	c.Detach()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	return nil
}

func (c *Controller) handleEvent(gen uint64, e media.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.WithField("event", e.Kind).Debug("dropping stale notification")
		return
	}

	switch e.Kind {
	case media.MetadataReady, media.DurationChanged:
		if c.applyDurationLocked(e.Value) {
			c.publishLocked()
		}
	case media.Playable:
		if d, ok := c.el.Duration(); ok && c.applyDurationLocked(d) {
			c.publishLocked()
		}
	case media.PositionAdvanced:
		if c.isSeeking {
			return
		}
		c.currentTime = c.clampLocked(e.Value)
		c.publishLocked()
	case media.Ended:
		c.isPlaying = false
		c.currentTime = 0
		c.publishLocked()
	}
}

// applyDurationLocked records a real duration. Once known, the duration only
// grows until the next Attach.
func (c *Controller) applyDurationLocked(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	if c.realDuration && d <= c.duration {
		return false
	}
	c.duration = d
	c.realDuration = true
	c.currentTime = c.clampLocked(c.currentTime)
	c.poll.cancel()
	return true
}

func (c *Controller) clampLocked(t time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if c.duration > 0 && t > c.duration {
		return c.duration
	}
	return t
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Source:      c.source,
		IsPlaying:   c.isPlaying,
		IsSeeking:   c.isSeeking,
		CurrentTime: c.currentTime,
		Duration:    c.duration,
	}
}

func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subs {
		sub.sendChanged(snap)
	}
}

func (c *Controller) publishErrorLocked(op string, err error) {
	e := ErrorEvent{Operation: op, Source: c.source, Err: err}
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subs {
		sub.sendError(e)
	}
}
