package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	Changed <-chan Snapshot
	Error   <-chan ErrorEvent
	Done    <-chan struct{}

	// Internal write channels
	changedCh chan Snapshot
	errorCh   chan ErrorEvent
	doneCh    chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		changedCh: make(chan Snapshot, eventBufferSize),
		errorCh:   make(chan ErrorEvent, eventBufferSize),
		doneCh:    make(chan struct{}),
	}
	s.Changed = s.changedCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendChanged sends a snapshot (non-blocking). When the buffer is full the
// oldest snapshot is dropped so the newest state always gets through.
func (s *Subscription) sendChanged(snap Snapshot) {
	select {
	case s.changedCh <- snap:
		return
	default:
	}
	select {
	case <-s.changedCh:
	default:
	}
	select {
	case s.changedCh <- snap:
	default:
	}
}

// sendError sends an error event (non-blocking).
func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
		// Drop if buffer full
	}
}
