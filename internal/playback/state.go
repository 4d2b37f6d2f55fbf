// internal/playback/state.go
package playback

import "time"

// Snapshot is the read model published after every controller mutation.
type Snapshot struct {
	Source      string
	IsPlaying   bool
	IsSeeking   bool
	CurrentTime time.Duration
	Duration    time.Duration // 0 while unknown
}

// Status returns the coarse playback status for display.
func (s Snapshot) Status() Status {
	switch {
	case s.Source == "":
		return StatusDetached
	case s.IsPlaying:
		return StatusPlaying
	default:
		return StatusPaused
	}
}

// Remaining returns the time left, or 0 when the duration is unknown.
func (s Snapshot) Remaining() time.Duration {
	if s.Duration <= 0 || s.CurrentTime >= s.Duration {
		return 0
	}
	return s.Duration - s.CurrentTime
}

// Status represents the controller state machine.
//
//	┌──────────┐   toggle (play ok)   ┌──────────┐
//	│  Paused  │ ───────────────────▶ │ Playing  │
//	└──────────┘ ◀─────────────────── └──────────┘
//	     ▲            toggle / ended        │
//	     │                                  │
//	     └──────── attach(new source) ──────┘
//
// Seeking is an orthogonal flag overlaying either state. Ended and Attach
// both reset the position to 0.
type Status int

const (
	StatusDetached Status = iota
	StatusPaused
	StatusPlaying
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDetached:
		return "Detached"
	case StatusPaused:
		return "Paused"
	case StatusPlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// pollPhase tags the duration poll variant.
type pollPhase int

const (
	pollIdle pollPhase = iota
	pollPolling
)

// durationPoll is the bounded, cancelable fallback that reads the element's
// duration field when metadata notifications do not arrive.
type durationPoll struct {
	phase        pollPhase
	attemptsLeft int
	stop         chan struct{}
}

func (p *durationPoll) cancel() {
	if p.phase == pollPolling {
		close(p.stop)
	}
	*p = durationPoll{}
}
