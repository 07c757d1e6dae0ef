package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversRowAppended(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.RowAppended(7)

	select {
	case event := <-ch:
		assert.Equal(t, 7, event.Row)
		assert.NotEmpty(t, event.EventID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe()
	second := hub.Subscribe()
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)

	hub.RowAppended(2)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, (<-first).EventID, (<-second).EventID)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Fill the subscriber buffer, then publish past it.
	for i := 0; i < cap(ch)+5; i++ {
		hub.RowAppended(i + 2)
	}

	assert.Len(t, ch, cap(ch))
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	hub.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	hub.RowAppended(3)
}
