// Package service holds the live draft and league views shared by the HTTP,
// gRPC and MCP transports. Each service caches the latest state read from
// the store, pushes it to subscribers and runs the write commands.
package service

import (
	"errors"
	"sync"

	"github.com/Con7105/fantasy-valo/internal/pubsub"
)

var (
	// ErrStoreUnavailable puts draft and league features in a disabled state.
	ErrStoreUnavailable = errors.New("draft and league features are unavailable: no store configured")
	// ErrInvalidInput wraps request problems the caller can fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState wraps commands that do not fit the current state.
	ErrInvalidState = errors.New("invalid state")
)

// Bus carries change events between instances.
type Bus interface {
	Publish(pubsub.Event)
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// listeners is a set of view callbacks.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(T){}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners[T]) notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func publish(bus Bus, events ...pubsub.Event) {
	if bus == nil {
		return
	}
	for _, e := range events {
		bus.Publish(e)
	}
}

// watch refreshes on every bus event about id in tables until ctx ends.
func watch(done <-chan struct{}, bus Bus, id string, tables []string, refresh func()) {
	if bus == nil {
		<-done
		return
	}
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-done:
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.About(id, tables...) {
				refresh()
			}
		}
	}
}
