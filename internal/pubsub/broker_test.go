package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Publish(KindLogEntry, "hello")

	select {
	case evt := <-ch:
		require.Equal(t, KindLogEntry, evt.Kind)
		require.Equal(t, "hello", evt.Payload)
		require.False(t, evt.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_SequenceNumbersIncrease(t *testing.T) {
	b := NewBroker[int]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Publish(KindSourceChanged, 1)
	b.Publish(KindSourceChanged, 2)

	first := <-ch
	second := <-ch
	require.Equal(t, first.Seq+1, second.Seq)
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	b := NewBroker[int]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := b.Subscribe(ctx)
	ch2 := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(KindSourceChanged, 42)

	for _, ch := range []<-chan Event[int]{ch1, ch2} {
		select {
		case evt := <-ch:
			require.Equal(t, 42, evt.Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBroker_SlowSubscriberMissesEvents(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Publish(KindSourceChanged, 1)
	b.Publish(KindSourceChanged, 2) // dropped: buffer of one is full
	b.Publish(KindSourceChanged, 3) // dropped

	evt := <-ch
	require.Equal(t, 1, evt.Payload)
	require.Equal(t, uint64(1), evt.Seq)
	// The next delivered event (if any) would carry Seq > 2, exposing the gap.
	require.Empty(t, ch)
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	b := NewBroker[string]()
	b.Close()

	ch := b.Subscribe(context.Background())
	_, ok := <-ch
	require.False(t, ok, "channel from closed broker should be closed")
}

func TestBroker_PublishAfterCloseDoesNotPanic(t *testing.T) {
	b := NewBroker[string]()
	b.Close()
	require.NotPanics(t, func() {
		b.Publish(KindLogEntry, "ignored")
	})
}

func TestBroker_CancelledContextRemovesSubscriber(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok)
}
