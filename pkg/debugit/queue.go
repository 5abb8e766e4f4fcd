package debugit

import (
	"fmt"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// sinkQueue owns one sink: a bounded event buffer drained by a single
// goroutine, so delivery order per sink matches enqueue order.
type sinkQueue struct {
	name   string
	sink   log.Sink
	events chan log.Event
	done   chan struct{}
	report func(source string, err error)
}

func newSinkQueue(name string, sink log.Sink, size int, report func(string, error)) *sinkQueue {
	q := &sinkQueue{
		name:   name,
		sink:   sink,
		events: make(chan log.Event, size),
		done:   make(chan struct{}),
		report: report,
	}
	go q.run()
	return q
}

// enqueue never blocks. It returns false if the queue is full.
// The caller must hold the logger's read lock so the channel is open.
func (q *sinkQueue) enqueue(event log.Event) bool {
	select {
	case q.events <- event:
		return true
	default:
		return false
	}
}

func (q *sinkQueue) run() {
	defer close(q.done)
	for event := range q.events {
		q.deliver(event)
	}
}

func (q *sinkQueue) deliver(event log.Event) {
	defer func() {
		if r := recover(); r != nil {
			q.report(q.name, fmt.Errorf("%w: %v", ErrSinkPanic, r))
		}
	}()

	if err := q.sink.Deliver(event); err != nil {
		q.report(q.name, err)
	}
}

// stop closes the buffer; run exits after draining it.
func (q *sinkQueue) stop() {
	close(q.events)
}
