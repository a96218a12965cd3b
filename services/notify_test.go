package services

import (
	"testing"

	"github.com/Cue77/medilink/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeHub_DeliversToSubscriber(t *testing.T) {
	hub := NewNoticeHub()
	ch, cancel := hub.Subscribe("pat-1")
	defer cancel()

	hub.Notify("pat-1", models.Notice{Title: "New Patient Message", Category: models.CategoryMessage})

	select {
	case n := <-ch:
		assert.Equal(t, "New Patient Message", n.Title)
	default:
		t.Fatal("notice not delivered")
	}
}

func TestNoticeHub_NoSubscriberDropsSilently(t *testing.T) {
	hub := NewNoticeHub()
	// Must not panic or block.
	hub.Notify("pat-1", models.Notice{Title: "nobody home"})
}

func TestNoticeHub_OtherViewerDoesNotReceive(t *testing.T) {
	hub := NewNoticeHub()
	ch, cancel := hub.Subscribe("pat-2")
	defer cancel()

	hub.Notify("pat-1", models.Notice{Title: "for pat-1"})
	assert.Empty(t, ch)
}

func TestNoticeHub_FullBufferNeverBlocks(t *testing.T) {
	hub := NewNoticeHub()
	ch, cancel := hub.Subscribe("pat-1")
	defer cancel()

	for i := 0; i < noticeBuffer+5; i++ {
		hub.Notify("pat-1", models.Notice{Title: "burst"})
	}
	// Excess notices over the buffer are lost, not queued.
	assert.Len(t, ch, noticeBuffer)
}

func TestNoticeHub_CancelClosesChannel(t *testing.T) {
	hub := NewNoticeHub()
	ch, cancel := hub.Subscribe("pat-1")
	cancel()
	cancel() // idempotent

	_, open := <-ch
	require.False(t, open)

	// Notifying after cancel must not send on the closed channel.
	hub.Notify("pat-1", models.Notice{Title: "late"})
}

func TestNoticeHub_MultipleSurfacesFanOut(t *testing.T) {
	hub := NewNoticeHub()
	a, cancelA := hub.Subscribe("pat-1")
	b, cancelB := hub.Subscribe("pat-1")
	defer cancelA()
	defer cancelB()

	hub.Notify("pat-1", models.Notice{Title: "both tabs"})
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}
