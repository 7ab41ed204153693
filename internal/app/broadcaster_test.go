package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe("s1")
	defer cancel()

	b.Publish("s1", Event{Step: StepScript, Status: StatusInProgress})
	b.Publish("s1", Event{Step: StepScript, Status: StatusCompleted})

	first := <-ch
	second := <-ch
	assert.Equal(t, StatusInProgress, first.Status)
	assert.Equal(t, StatusCompleted, second.Status)
}

func TestBroadcasterDropsWithoutSubscriber(t *testing.T) {
	b := NewBroadcaster()

	// Nobody is listening yet, so this event is lost.
	b.Publish("s1", Event{Step: StepScript, Status: StatusInProgress})

	ch, cancel := b.Subscribe("s1")
	defer cancel()
	b.Publish("s1", Event{Step: StepImages, Status: StatusInProgress})

	got := <-ch
	assert.Equal(t, StepImages, got.Step, "late subscriber only sees later events")
	assert.Empty(t, ch)
}

func TestBroadcasterPublishAfterCancelIsNoop(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe("s1")
	cancel()

	require.NotPanics(t, func() {
		b.Publish("s1", Event{Step: StepScript})
	})

	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancel")
}

func TestBroadcasterIsolatesSessions(t *testing.T) {
	b := NewBroadcaster()

	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s2")
	defer cancel2()

	b.Publish("s2", Event{Step: StepAudio})

	assert.Empty(t, ch1)
	got := <-ch2
	assert.Equal(t, StepAudio, got.Step)
}
