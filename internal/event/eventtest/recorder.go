// Package eventtest provides an in-memory event.Publisher for tests.
package eventtest

import (
	"context"
	"library-engine/internal/event"
	"sync"
)

type Recorder struct {
	mu     sync.Mutex
	events []event.Event
	Err    error
}

var _ event.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the routing keys of the recorded events in publish order.
func (r *Recorder) Keys() []string {
	events := r.Events()
	keys := make([]string, len(events))
	for i, e := range events {
		keys[i] = e.RoutingKey()
	}
	return keys
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
