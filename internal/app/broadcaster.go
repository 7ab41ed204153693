package app

import "sync"

const subscriberBuffer = 32

// Broadcaster routes progress events to per-session subscribers. Each
// session has at most one subscriber; events published while nobody is
// listening are dropped rather than queued, and publishing after a
// subscriber disconnects is a no-op.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan Event)}
}

// Subscribe attaches the single listener for a session and returns its
// event channel plus a cancel function that deregisters it. A second
// Subscribe for the same session replaces the first.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if old, ok := b.subs[sessionID]; ok {
		close(old)
	}
	b.subs[sessionID] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subs[sessionID] == ch {
			delete(b.subs, sessionID)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish sends an event to the session's subscriber. Sends never
// block: with no subscriber, or with a subscriber too slow to drain
// its buffer, the event is dropped.
func (b *Broadcaster) Publish(sessionID string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[sessionID]
	if !ok {
		return
	}

	// Sending under the lock keeps Publish ordered with cancel, which
	// closes the channel.
	select {
	case ch <- event:
	default:
	}
}
