// Package player implements media.Element on top of the beep audio stack.
package player

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/castdeck/internal/media"
)

const (
	defaultTickInterval = 250 * time.Millisecond
	defaultFetchTimeout = 30 * time.Second
)

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// initSpeaker initializes the shared speaker once, at the rate of the first
// stream played.
func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return speakerSampleRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, err
	}
	speakerInitialized = true
	speakerSampleRate = rate
	return rate, nil
}

// Config configures a Player.
type Config struct {
	HTTPClient   *http.Client
	TickInterval time.Duration // position notification spacing
	Logger       logrus.FieldLogger
}

// Player plays one source at a time through the system speaker.
type Player struct {
	mu     sync.Mutex
	client *http.Client
	tick   time.Duration
	log    logrus.FieldLogger

	loadGen    uint64
	loadCancel context.CancelFunc

	src      *source
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	queued   bool
	playing  bool

	volumeLevel float64
	muted       bool

	listeners map[int]media.Listener
	nextID    int
	events    *eventQueue
	finished  chan uint64
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a player and starts its dispatcher.
func New(cfg Config) *Player {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	p := &Player{
		client:      cfg.HTTPClient,
		tick:        cfg.TickInterval,
		log:         cfg.Logger.WithField("component", "player"),
		volumeLevel: 1,
		listeners:   make(map[int]media.Listener),
		events:      newEventQueue(),
		finished:    make(chan uint64, 1),
		done:        make(chan struct{}),
	}
	p.wg.Add(2)
	go p.dispatchLoop()
	go p.monitorLoop()
	return p
}

// Load replaces the current source. Fetching and decoding happen in the
// background; MetadataReady and Playable follow on success.
func (p *Player) Load(locator string) error {
	if locator == "" {
		return errors.New("empty source")
	}

	p.mu.Lock()
	p.releaseLocked()
	p.loadGen++
	gen := p.loadGen
	ctx, cancel := context.WithCancel(context.Background())
	p.loadCancel = cancel
	p.mu.Unlock()

	go p.load(ctx, gen, locator)
	return nil
}

func (p *Player) load(ctx context.Context, gen uint64, locator string) {
	log := p.log.WithField("source", locator)

	src, err := openSource(ctx, p.client, locator)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("open source failed")
		}
		return
	}
	streamer, format, err := decode(src.r, src.format)
	if err != nil {
		src.Close()
		log.WithError(err).Warn("decode failed")
		return
	}

	p.mu.Lock()
	if gen != p.loadGen {
		p.mu.Unlock()
		streamer.Close()
		src.Close()
		return
	}
	p.src = src
	p.streamer = streamer
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	duration := format.SampleRate.D(streamer.Len())
	p.emitLocked(media.Event{Kind: media.MetadataReady, Value: duration})
	p.emitLocked(media.Event{Kind: media.Playable})
	p.mu.Unlock()

	log.WithFields(logrus.Fields{
		"format":   src.format,
		"size":     humanize.Bytes(uint64(max(src.size, 0))),
		"duration": duration,
	}).Debug("source loaded")
}

// Play starts or resumes playback. Returns media.ErrNotReady before the
// current source has loaded.
func (p *Player) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.ctrl == nil {
		return media.ErrNotReady
	}

	if !p.queued {
		rate, err := initSpeaker(p.format.SampleRate)
		if err != nil {
			return err
		}
		var s beep.Streamer = p.ctrl
		if p.format.SampleRate != rate {
			s = beep.Resample(4, p.format.SampleRate, rate, s)
		}
		p.volume = &effects.Volume{Streamer: s, Base: 2, Volume: levelToVolume(p.volumeLevel), Silent: p.muted}
		gen := p.loadGen
		speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
			// Runs on the speaker goroutine with the speaker locked.
			select {
			case p.finished <- gen:
			default:
			}
		})))
		p.queued = true
	}

	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.playing = true
	return nil
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil || !p.playing {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.playing = false
}

// SetPosition seeks the current stream.
func (p *Player) SetPosition(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return media.ErrNotSeekable
	}

	n := p.format.SampleRate.N(pos)
	n = min(max(n, 0), max(p.streamer.Len()-1, 0))

	speaker.Lock()
	err := p.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return errors.Join(media.ErrNotSeekable, err)
	}
	return nil
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	n := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(n)
}

// Duration returns the decoded stream length.
func (p *Player) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.streamer.Len() <= 0 {
		return 0, false
	}
	return p.format.SampleRate.D(p.streamer.Len()), true
}

// Listen registers l for notifications.
func (p *Player) Listen(l media.Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Close stops playback and releases the player's goroutines.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.releaseLocked()
		p.loadGen++
		p.mu.Unlock()

		close(p.done)
		p.events.close()
		p.wg.Wait()
	})
	return nil
}

// releaseLocked stops the current stream and cancels any pending load.
func (p *Player) releaseLocked() {
	if p.loadCancel != nil {
		p.loadCancel()
		p.loadCancel = nil
	}
	if p.queued {
		speaker.Clear()
		p.queued = false
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.src != nil {
		p.src.Close()
		p.src = nil
	}
	p.ctrl = nil
	p.volume = nil
	p.playing = false
}

// emitLocked queues e for the current load. Callers hold p.mu.
func (p *Player) emitLocked(e media.Event) {
	p.events.push(queuedEvent{gen: p.loadGen, Event: e})
}

// dispatchLoop delivers queued events in order, outside of any lock. Events
// queued for a load that has since been replaced are dropped.
func (p *Player) dispatchLoop() {
	defer p.wg.Done()
	for {
		qe, ok := p.events.pop()
		if !ok {
			return
		}
		p.mu.Lock()
		if qe.gen != p.loadGen {
			p.mu.Unlock()
			p.log.WithField("event", qe.Kind).Debug("dropping event from replaced source")
			continue
		}
		e := qe.Event
		ls := make([]media.Listener, 0, len(p.listeners))
		for _, l := range p.listeners {
			ls = append(ls, l)
		}
		p.mu.Unlock()
		for _, l := range ls {
			l(e)
		}
	}
}

// monitorLoop emits position updates while playing and handles stream end.
func (p *Player) monitorLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case gen := <-p.finished:
			p.handleFinished(gen)
		case <-ticker.C:
			p.mu.Lock()
			if p.playing {
				p.emitLocked(media.Event{Kind: media.PositionAdvanced, Value: p.positionLocked()})
			}
			p.mu.Unlock()
		}
	}
}

func (p *Player) handleFinished(gen uint64) {
	p.mu.Lock()
	if gen != p.loadGen || p.streamer == nil {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.queued = false
	speaker.Lock()
	p.ctrl.Paused = true
	_ = p.streamer.Seek(0)
	speaker.Unlock()
	p.emitLocked(media.Event{Kind: media.Ended})
	p.mu.Unlock()
}

// Verify Player implements media.Element at compile time.
var _ media.Element = (*Player)(nil)
