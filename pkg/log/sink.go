package log

// Sink is the interface every destination implements to receive events.
//
// The dispatcher calls Deliver from a goroutine owned by that sink, never
// from the logging call path, and never waits on it. A returned error is
// reported on the diagnostic channel; it is not retried. Sinks that hold
// resources may also implement io.Closer.
type Sink interface {
	// Deliver hands one event to the sink. The event must not be modified.
	Deliver(event Event) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event) error

// Deliver calls f(event).
func (f SinkFunc) Deliver(event Event) error {
	return f(event)
}

// Compile-time interface satisfaction check.
var _ Sink = SinkFunc(nil)
