package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus()

	var seen []Outcome
	bus.Subscribe(func(ev StatusEvent) {
		seen = append(seen, ev.Outcome)
	})

	bus.Publish(StatusEvent{Outcome: OutcomeRunning})
	bus.Publish(StatusEvent{Outcome: OutcomePassed})
	bus.Publish(StatusEvent{Outcome: OutcomeFailed})

	assert.Equal(t, []Outcome{OutcomeRunning, OutcomePassed, OutcomeFailed}, seen)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	first := 0
	second := 0
	unsub := bus.Subscribe(func(StatusEvent) { first++ })
	bus.Subscribe(func(StatusEvent) { second++ })

	bus.Publish(StatusEvent{Outcome: OutcomePassed})
	unsub()
	bus.Publish(StatusEvent{Outcome: OutcomePassed})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()

	first := 0
	second := 0
	var unsub func()
	unsub = bus.Subscribe(func(StatusEvent) {
		first++
		unsub()
	})
	bus.Subscribe(func(StatusEvent) { second++ })

	// The self-removing handler must not shift the later handler out of
	// the current dispatch.
	bus.Publish(StatusEvent{Outcome: OutcomePassed})
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	bus.Publish(StatusEvent{Outcome: OutcomePassed})
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestOutcome_Terminal(t *testing.T) {
	assert.False(t, OutcomeRunning.Terminal())
	for _, o := range []Outcome{OutcomePassed, OutcomeFailed, OutcomeErrored, OutcomeSkipped} {
		assert.True(t, o.Terminal(), "%s should be terminal", o)
	}
}
