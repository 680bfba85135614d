package pubsub

import (
	"sync"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// broadcaster fans events received from a transport out to local channels.
// The transport drivers embed it to satisfy Subscribe and Unsubscribe.
type broadcaster struct {
	name        string
	mu          sync.RWMutex
	subscribers []chan Event
}

// Subscribe creates a subscription channel for events
func (b *broadcaster) Subscribe() chan Event {
	ch := make(chan Event, 100)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	n := len(b.subscribers)
	b.mu.Unlock()

	logger.Debug(b.name+": New subscriber added", "total_subscribers", n)
	return ch
}

// Unsubscribe removes a subscription channel
func (b *broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			logger.Debug(b.name+": Subscriber removed", "remaining_subscribers", len(b.subscribers))
			break
		}
	}
}

func (b *broadcaster) broadcast(event Event) {
	b.mu.RLock()
	subs := make([]chan Event, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			logger.Warn(b.name+": Skipping slow subscriber", "table", event.Table, "id", event.ID)
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// SubscriberCount returns the number of active local subscribers
func (b *broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
