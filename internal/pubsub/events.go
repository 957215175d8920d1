// Package pubsub fans in-process workspace notifications out to consumers:
// the live log tail and stale-window signals both ride on the same broker.
package pubsub

import (
	"context"
	"time"
)

// Kind names what happened. Kinds are domain events, one per notification
// source.
type Kind string

const (
	// KindLogEntry carries one formatted log line for live tailing.
	KindLogEntry Kind = "log-entry"

	// KindSourceChanged reports an external change to the file backing a
	// window.
	KindSourceChanged Kind = "source-changed"
)

// Event is one published notification. Seq is a broker-wide counter, so a
// consumer can detect that it missed events after falling behind.
type Event[T any] struct {
	Kind    Kind
	Payload T
	Seq     uint64
	At      time.Time
}

// Subscriber is the receive side of a broker.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher is the send side of a broker.
type Publisher[T any] interface {
	Publish(kind Kind, payload T)
}
