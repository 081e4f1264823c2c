// Package events carries case progress from the runner to its watchers:
// the live terminal view, line output, the SSE stream and tests.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is implemented by every case event.
type Event interface {
	EventType() string
	Timestamp() time.Time
	CaseID() string
}

// BaseEvent holds the fields shared by all events.
type BaseEvent struct {
	Type string    `json:"type"`
	Time time.Time `json:"timestamp"`
	Case string    `json:"case_id"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) CaseID() string       { return e.Case }

// NewBaseEvent stamps an event of eventType for caseID.
func NewBaseEvent(eventType, caseID string) BaseEvent {
	return BaseEvent{Type: eventType, Time: time.Now(), Case: caseID}
}

// IsTerminal reports whether e is the last event of its case.
func IsTerminal(e Event) bool {
	switch e.EventType() {
	case TypeCaseCompleted, TypeCaseFailed:
		return true
	}
	return false
}

const defaultBufferSize = 100

type subscription struct {
	ch      chan Event
	caseID  string
	types   map[string]bool
	dropped atomic.Int64
}

func (s *subscription) wants(e Event) bool {
	if s.caseID != "" && s.caseID != e.CaseID() {
		return false
	}
	return len(s.types) == 0 || s.types[e.EventType()]
}

// deliver never blocks and returns the number of events lost. A full
// buffer loses its oldest event, so the newest one, and with it the
// terminal event of a case, always arrives.
func (s *subscription) deliver(e Event) int64 {
	select {
	case s.ch <- e:
		return 0
	default:
	}
	var lost int64
	select {
	case <-s.ch:
		lost++
	default:
	}
	select {
	case s.ch <- e:
	default:
		lost++
	}
	s.dropped.Add(lost)
	return lost
}

// EventBus fans events out to buffered subscriptions. Publishing never
// waits on a slow reader.
type EventBus struct {
	mu         sync.RWMutex
	subs       map[<-chan Event]*subscription
	bufferSize int
	dropped    atomic.Int64
	closed     bool
}

// New creates a bus whose subscriptions buffer bufferSize events.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &EventBus{
		subs:       make(map[<-chan Event]*subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe receives events of the given types from every case, or all
// events when no type is given.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.SubscribeForCase("", types...)
}

// SubscribeForCase receives events of one case. An empty caseID follows
// every case. On a closed bus the returned channel is already closed.
func (eb *EventBus) SubscribeForCase(caseID string, types ...string) <-chan Event {
	sub := &subscription{
		ch:     make(chan Event, eb.bufferSize),
		caseID: caseID,
		types:  make(map[string]bool, len(types)),
	}
	for _, t := range types {
		sub.types[t] = true
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		close(sub.ch)
		return sub.ch
	}
	eb.subs[sub.ch] = sub
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if sub, ok := eb.subs[ch]; ok {
		delete(eb.subs, ch)
		close(sub.ch)
	}
}

// Publish delivers event to every matching subscription.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	for _, sub := range eb.subs {
		if !sub.wants(event) {
			continue
		}
		if lost := sub.deliver(event); lost > 0 {
			eb.dropped.Add(lost)
		}
	}
}

// Dropped returns how many events ch has lost to a full buffer.
func (eb *EventBus) Dropped(ch <-chan Event) int64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if sub, ok := eb.subs[ch]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// DroppedCount returns the events lost across all subscriptions.
func (eb *EventBus) DroppedCount() int64 {
	return eb.dropped.Load()
}

// Close closes every subscription. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for ch, sub := range eb.subs {
		close(sub.ch)
		delete(eb.subs, ch)
	}
}
