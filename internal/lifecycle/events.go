package lifecycle

// Event represents a manager lifecycle event.
// Minimal and stable: event name + component name and optional fields.
type Event struct {
	Name      string
	Component string
	Fields    map[string]any
}

// Event names published by the manager.
const (
	EventRegistered = "registered"
	EventLoadStart  = "load_start"
	EventLoaded     = "loaded"
	EventLoadFailed = "load_failed"
	EventEvicted    = "evicted"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
