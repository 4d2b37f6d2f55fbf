package player

import (
	"sync"

	"github.com/llehouerou/castdeck/internal/media"
)

// queuedEvent is an event tagged with the load generation it belongs to.
type queuedEvent struct {
	gen uint64
	media.Event
}

// eventQueue is an unbounded FIFO so that emitting never blocks, even while
// a listener is busy calling back into the player.
type eventQueue struct {
	mu     sync.Mutex
	items  []queuedEvent
	signal chan struct{}
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e queuedEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until an event is available. It returns false once the queue
// is closed and drained.
func (q *eventQueue) pop() (queuedEvent, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		if q.closed {
			q.mu.Unlock()
			return queuedEvent{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}
