package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when a feature is not supported by the selected
// broker, e.g. headers on NSQ.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic/subject/queue).
type Publisher interface {
	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// Consumer consumes messages from a source.
//
// Consume blocks until ctx is canceled. Message acknowledgment follows the
// handler result: nil acks, non-nil nacks/requeues where the broker supports
// it.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning and Pub/Sub for ordering.
	Key []byte

	// Headers carries string metadata for brokers that support it.
	Headers map[string]string
}

// Message is a broker-agnostic received message.
type Message interface {
	// Body returns the message payload.
	Body() []byte
	// Header returns the value for a header key, or "".
	Header(key string) string
	// Source returns the topic/subject the message arrived on.
	Source() string
	// Timestamp returns the broker or receipt timestamp.
	Timestamp() time.Time
}
