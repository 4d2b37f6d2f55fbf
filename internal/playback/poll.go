package playback

import (
	"fmt"
	"time"
)

// startPollLocked arms the duration poll for generation gen. Some hosting
// backends never deliver a metadata notification, so the element's duration
// field is read directly until it reports a value or the budget runs out.
func (c *Controller) startPollLocked(gen uint64) {
	c.poll.cancel()
	if c.realDuration {
		return
	}
	stop := make(chan struct{})
	c.poll = durationPoll{
		phase:        pollPolling,
		attemptsLeft: c.opts.PollAttempts,
		stop:         stop,
	}
	go c.runPoll(gen, stop)
}

func (c *Controller) runPoll(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := c.pollTick(gen); done {
				return
			}
		}
	}
}

// pollTick performs one attempt and reports whether polling is over.
func (c *Controller) pollTick(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.poll.phase != pollPolling {
		return true
	}
	if d, ok := c.el.Duration(); ok && d > 0 {
		if c.applyDurationLocked(d) {
			c.publishLocked()
		}
		c.poll.cancel()
		return true
	}

	c.poll.attemptsLeft--
	if c.poll.attemptsLeft > 0 {
		return false
	}

	c.poll.cancel()
	c.log.WithField("source", c.source).Info("duration unavailable, giving up")
	c.publishErrorLocked(OpMetadata, fmt.Errorf("%w after %d attempts", ErrMetadataUnavailable, c.opts.PollAttempts))
	return true
}
