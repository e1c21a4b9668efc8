// Package events carries test status events from the run session to its
// subscribers. Events are fanned out synchronously in subscription order, so
// subscribers observe emissions in the exact order their source lines were
// observed on a given channel.
package events

import (
	"time"

	"github.com/connorshea/vscode-ruby-test-adapter-sub001/internal/tree"
)

// Outcome represents the reported state of a test
type Outcome string

const (
	OutcomeRunning Outcome = "RUNNING"
	OutcomePassed  Outcome = "PASSED"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeErrored Outcome = "ERRORED"
	OutcomeSkipped Outcome = "SKIPPED"
)

// Terminal reports whether the outcome is final for this run.
func (o Outcome) Terminal() bool {
	return o != OutcomeRunning
}

// FailureDetail carries formatted failure information for a failed or
// errored test, with a source position to attach the message to.
type FailureDetail struct {
	Message string
	File    string
	Line    int // zero-based
	Column  int
}

// StatusEvent is one emission on the bus: a node changed state.
type StatusEvent struct {
	Node     *tree.TestNode
	Outcome  Outcome
	Duration *time.Duration
	Failure  *FailureDetail
}

// Handler consumes status events.
type Handler func(StatusEvent)

// Bus is an ordered observer list. Publish is synchronous; all mutation and
// emission happens on the single event-processing path of a run session, so
// no locking is needed beyond guarding the subscriber list itself.
type Bus struct {
	handlers []*handlerEntry
}

type handlerEntry struct {
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	entry := &handlerEntry{fn: h}
	b.handlers = append(b.handlers, entry)

	return func() {
		for i, e := range b.handlers {
			if e == entry {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every subscriber in subscription order.
// The list is snapshotted first: a handler unsubscribing itself (or others)
// mid-dispatch cannot cause a later handler to be skipped or run twice.
func (b *Bus) Publish(ev StatusEvent) {
	handlers := make([]*handlerEntry, len(b.handlers))
	copy(handlers, b.handlers)
	for _, entry := range handlers {
		entry.fn(ev)
	}
}
