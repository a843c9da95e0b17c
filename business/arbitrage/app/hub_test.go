package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

func TestHub_BroadcastsToEverySubscriber(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe(4)
	b, unsubB := h.Subscribe(4)
	defer unsubA()
	defer unsubB()

	h.Publish(domain.Event{Type: domain.EventScanCycleCompleted})

	for _, ch := range []<-chan domain.Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, domain.EventScanCycleCompleted, ev.Type)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	_, unsub := h.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Publish(domain.Event{Type: domain.EventOpportunityFound})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	assert.Equal(t, uint64(4), h.Dropped())
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe(1)
	require.Equal(t, 1, h.Subscribers())

	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers())

	h.Publish(domain.Event{Type: domain.EventTradeExecuted})
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe(1)
	h.Close()

	_, open := <-ch
	assert.False(t, open)
	unsub()

	late, _ := h.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}
