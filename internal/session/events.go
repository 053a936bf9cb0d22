package session

import (
	"sync"

	"github.com/kozaktomas/facescan/internal/constants"
)

// Event types published by a session.
const (
	EventState   = "state"   // loading, facing mode or error changed
	EventOverlay = "overlay" // a pass was applied
	EventEnroll  = "enroll"  // an enrollment was staged or confirmed
	EventClosed  = "closed"
)

// Event is a state change notification.
type Event struct {
	Type  string `json:"type"`
	State State  `json:"state"`
}

// Broadcaster fans events out to listeners. Slow listeners miss events
// instead of blocking the publisher.
type Broadcaster struct {
	listeners []chan Event
	closed    bool
	mu        sync.RWMutex
}

// AddListener adds an event listener. Listeners added after Close receive
// a closed channel.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *Broadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Close delivers a final event and closes every listener.
func (b *Broadcaster) Close(final Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		select {
		case listener <- final:
		default:
		}
		close(listener)
	}
	b.listeners = nil
}

// Listeners returns the number of attached listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
