package pubsub

import (
	"sync"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// Tables whose changes are announced. An event's Table is one of these.
const (
	TableDraftRooms    = "draft_rooms"
	TableDraftPicks    = "draft_picks"
	TableLeagues       = "leagues"
	TableLeagueMembers = "league_members"
	TableLeagueWeeks   = "league_weeks"
)

const (
	TypeInsert = "insert"
	TypeUpdate = "update"
)

// Event is a row-change notification. ID is the owning room or league, so a
// watcher can filter without decoding the payload.
type Event struct {
	Type    string         `json:"type"`
	Table   string         `json:"table"`
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Changed builds a change event for a table row owned by id.
func Changed(eventType, table, id string) Event {
	return Event{Type: eventType, Table: table, ID: id}
}

// About reports whether the event concerns id in any of tables.
func (e Event) About(id string, tables ...string) bool {
	if e.ID != id {
		return false
	}
	if len(tables) == 0 {
		return true
	}
	for _, t := range tables {
		if e.Table == t {
			return true
		}
	}
	return false
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Upstream
}

func New() *PubSub {
	return &PubSub{
		subscribers: []chan Event{},
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher.
// Publish goes to the upstream, which broadcasts to every instance; events
// from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
	}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, 10)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "total_subscribers", len(ps.subscribers))
	return ch
}

func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers, through the upstream when one
// is configured.
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		logger.Debug("PubSub: Forwarding to upstream", "table", event.Table, "id", event.ID)
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

// publishLocal sends an event to local subscribers only. Slow subscribers
// miss events; the polling fallback covers them.
func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	subs := make([]chan Event, len(ps.subscribers))
	copy(subs, ps.subscribers)
	ps.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}
