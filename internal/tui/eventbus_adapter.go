package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
)

// EventBusAdapter bridges EventBus events of one case to Bubbletea messages.
type EventBusAdapter struct {
	bus     *events.EventBus
	eventCh <-chan events.Event
	msgCh   chan tea.Msg
	closeCh chan struct{}
	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewEventBusAdapter subscribes to the events of caseID. An empty caseID
// follows every case.
func NewEventBusAdapter(bus *events.EventBus, caseID string) *EventBusAdapter {
	adapter := &EventBusAdapter{
		bus:     bus,
		eventCh: bus.SubscribeForCase(caseID),
		msgCh:   make(chan tea.Msg, 100),
		closeCh: make(chan struct{}),
	}

	go adapter.run()
	return adapter
}

// MsgChannel returns the channel for Bubbletea to read from.
func (a *EventBusAdapter) MsgChannel() <-chan tea.Msg {
	return a.msgCh
}

// Next returns a command that waits for the next message.
func (a *EventBusAdapter) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.msgCh
		if !ok {
			return eventClosedMsg{}
		}
		return msg
	}
}

// Close shuts down the adapter and releases the subscription.
func (a *EventBusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)
	a.bus.Unsubscribe(a.eventCh)
}

// run processes events and converts them to tea.Msg.
func (a *EventBusAdapter) run() {
	defer close(a.msgCh)
	for {
		select {
		case <-a.closeCh:
			return

		case event, ok := <-a.eventCh:
			if !ok {
				return
			}
			if n := a.bus.Dropped(a.eventCh); n != a.dropped {
				a.dropped = n
				a.send(DroppedEventsMsg{Count: n})
			}
			if msg := toMsg(event); msg != nil {
				a.send(msg)
			}
		}
	}
}

func (a *EventBusAdapter) send(msg tea.Msg) {
	select {
	case a.msgCh <- msg:
	case <-a.closeCh:
	}
}
