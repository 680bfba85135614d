package pubsub

import (
	"sync"
	"testing"
	"time"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

func init() {
	logger.Init()
}

func receive(t *testing.T, ch chan Event, within time.Duration) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(within):
		return Event{}, false
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()
	if ps.SubscriberCount() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", ps.SubscriberCount())
	}

	ps.Unsubscribe(ch2)
	if ps.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}
	if _, ok := <-ch2; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	ps.Publish(Changed(TypeInsert, TableDraftPicks, "room-1"))
	for i, ch := range []chan Event{ch1, ch3} {
		if _, ok := receive(t, ch, 100*time.Millisecond); !ok {
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestUnsubscribeNonexistent(t *testing.T) {
	ps := New()
	ch := make(chan Event, 1)
	ps.Unsubscribe(ch)

	// not managed by pubsub, so still open
	ch <- Event{Type: TypeUpdate}
}

func TestPublishCarriesRowIdentity(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	event := Changed(TypeUpdate, TableLeagueWeeks, "league-7")
	event.Payload = map[string]any{"weekNumber": 2.0}
	ps.Publish(event)

	got, ok := receive(t, ch, 100*time.Millisecond)
	if !ok {
		t.Fatal("timeout waiting for event")
	}
	if got.Table != TableLeagueWeeks || got.ID != "league-7" || got.Type != TypeUpdate {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Payload["weekNumber"] != 2.0 {
		t.Errorf("payload mismatch: %v", got.Payload)
	}
}

func TestEventAbout(t *testing.T) {
	e := Changed(TypeInsert, TableDraftPicks, "room-1")

	tests := []struct {
		id     string
		tables []string
		want   bool
	}{
		{"room-1", nil, true},
		{"room-1", []string{TableDraftRooms, TableDraftPicks}, true},
		{"room-1", []string{TableLeagues}, false},
		{"room-2", []string{TableDraftPicks}, false},
	}
	for _, tt := range tests {
		if got := e.About(tt.id, tt.tables...); got != tt.want {
			t.Errorf("About(%q, %v) = %v, want %v", tt.id, tt.tables, got, tt.want)
		}
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	// buffer size is 10
	for i := 0; i < 15; i++ {
		ps.Publish(Changed(TypeUpdate, TableDraftRooms, "room-1"))
	}

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != 10 {
		t.Errorf("expected 10 events (buffer size), got %d", count)
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			time.Sleep(time.Millisecond)
			ps.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			ps.Publish(Changed(TypeInsert, TableLeagueMembers, "league-1"))
		}()
	}
	wg.Wait()

	if n := ps.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers after all unsubscribe, got %d", n)
	}
}

// mockUpstream implements Upstream for testing
type mockUpstream struct {
	mu          sync.Mutex
	published   []Event
	subscribers []chan Event
}

func (m *mockUpstream) Publish(event Event) {
	m.mu.Lock()
	m.published = append(m.published, event)
	subs := append([]chan Event(nil), m.subscribers...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *mockUpstream) Subscribe() chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 100)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *mockUpstream) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			close(ch)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

func (m *mockUpstream) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func TestPublishWithUpstream(t *testing.T) {
	upstream := &mockUpstream{}
	ps := NewWithUpstream(upstream)
	ch := ps.Subscribe()

	ps.Publish(Changed(TypeInsert, TableDraftPicks, "room-1"))

	got, ok := receive(t, ch, time.Second)
	if !ok {
		t.Fatal("timeout waiting for event from upstream")
	}
	if got.Table != TableDraftPicks {
		t.Errorf("expected draft_picks event, got %+v", got)
	}
	if upstream.publishedCount() != 1 {
		t.Errorf("expected 1 event published upstream, got %d", upstream.publishedCount())
	}
}

func TestUpstreamBroadcastToLocalSubscribers(t *testing.T) {
	upstream := &mockUpstream{}
	ps := NewWithUpstream(upstream)

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()

	// another instance publishing
	upstream.Publish(Changed(TypeUpdate, TableLeagues, "league-1"))

	for i, ch := range []chan Event{ch1, ch2} {
		got, ok := receive(t, ch, time.Second)
		if !ok || got.ID != "league-1" {
			t.Errorf("subscriber %d: got %+v, %v", i, got, ok)
		}
	}
}
