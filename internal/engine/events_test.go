package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	_, a := h.Subscribe(4)
	_, b := h.Subscribe(4)

	h.Publish(Event{Type: EventHalt})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			assert.Equal(t, EventHalt, evt.Type)
			assert.False(t, evt.At.IsZero())
		default:
			t.Fatal("subscriber missed event")
		}
	}
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(1)

	h.Publish(Event{Type: EventFill})
	h.Publish(Event{Type: EventFlatten})

	evt := <-ch
	assert.Equal(t, EventFill, evt.Type)
	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)
	h.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic.
	h.Publish(Event{Type: EventState})
}
