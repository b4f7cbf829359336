package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(MotionEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so publish must go
	// through a type switch rather than the interface value.
	switch e := ev.(type) {
	case MotionEvent:
		event.Publish(b.dispatcher, e)
	case MonitorStateEvent:
		event.Publish(b.dispatcher, e)
	case SessionStartedEvent:
		event.Publish(b.dispatcher, e)
	case SessionStoppedEvent:
		event.Publish(b.dispatcher, e)
	case SnapshotCapturedEvent:
		event.Publish(b.dispatcher, e)
	case ChannelsReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e MotionEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(MotionEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MonitorStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SnapshotCapturedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ChannelsReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type gets a no-op unsubscribe
		return func() {}
	}
}
