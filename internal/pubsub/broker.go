package pubsub

import (
	"context"
	"sync"
	"time"
)

// defaultBuffer bounds how far a subscriber may fall behind before it starts
// missing events.
const defaultBuffer = 64

// Broker fans events out to its subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event, and the gap shows up in
// the sequence numbers it receives.
type Broker[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan Event[T]
	nextID int
	seq    uint64
	buffer int
	closed bool
}

// NewBroker creates a broker with the default per-subscriber buffer.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBuffer)
}

// NewBrokerWithBuffer creates a broker with a custom per-subscriber buffer.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{subs: make(map[int]chan Event[T]), buffer: size}
}

// Subscribe registers a subscriber. The returned channel is closed when ctx
// is cancelled or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch := make(chan Event[T])
		close(ch)
		return ch
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event[T], b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			// Already closed by Close.
			return
		}
		delete(b.subs, id)
		close(ch)
	}()
	return ch
}

// Publish stamps the payload with the next sequence number and delivers it to
// every subscriber that has buffer room.
func (b *Broker[T]) Publish(kind Kind, payload T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.seq++
	ev := Event[T]{Kind: kind, Payload: payload, Seq: b.seq, At: time.Now()}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the broker down and closes every subscriber channel. Later
// publishes are discarded.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount reports how many subscribers are attached.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
