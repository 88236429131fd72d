package dispatch

// Event names published by the Dispatcher.
const (
	EventRunStart        = "run_start"
	EventRunSuperseded   = "run_superseded"
	EventRunAbandoned    = "run_abandoned"
	EventResultDelivered = "result_delivered"
	EventResultStale     = "result_stale"
)

// Event represents a dispatcher lifecycle event.
type Event struct {
	Name     string
	HandleID string
	Mode     string
	Fields   map[string]any
}

// EventPublisher receives events from the dispatcher. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
