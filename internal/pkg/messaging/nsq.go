package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
)

var (
	// ErrNSQAddrRequired is returned when no nsqd or lookupd address is configured.
	ErrNSQAddrRequired = errors.New("messaging: nsq address is required")
	// ErrNSQTopicRequired is returned when the topic is empty.
	ErrNSQTopicRequired = errors.New("messaging: nsq topic is required")
	// ErrNSQChannelRequired is returned when Consume is called without a channel.
	ErrNSQChannelRequired = errors.New("messaging: nsq channel is required")
	// ErrNSQHandlerRequired is returned when Consume is called with a nil handler.
	ErrNSQHandlerRequired = errors.New("messaging: nsq handler is required")
)

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	// NSQDAddr is the nsqd TCP address used for publishing and direct consuming.
	NSQDAddr string
	// LookupdAddrs are nsqlookupd HTTP addresses used for consumer discovery.
	LookupdAddrs []string
}

// NSQ is a messaging implementation backed by NSQ.
//
// NSQ has no message headers; OutgoingMessage.Headers is rejected with
// ErrUnsupported so callers do not silently lose metadata.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer

	mu        sync.Mutex
	consumers []*nsq.Consumer
}

// NewNSQ constructs an NSQ messaging client.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.NSQDAddr == "" && len(cfg.LookupdAddrs) == 0 {
		return nil, ErrNSQAddrRequired
	}

	var producer *nsq.Producer
	if cfg.NSQDAddr != "" {
		p, err := nsq.NewProducer(cfg.NSQDAddr, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq producer: %w", err)
		}
		producer = p
	}

	return &NSQ{cfg: cfg, producer: producer}, nil
}

// Close stops the producer and all consumers.
func (q *NSQ) Close() error {
	q.mu.Lock()
	consumers := append([]*nsq.Consumer{}, q.consumers...)
	q.consumers = nil
	q.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
	}
	for _, c := range consumers {
		<-c.StopChan
	}

	if q.producer != nil {
		q.producer.Stop()
	}
	return nil
}

// Publish sends a message to an NSQ topic.
func (q *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrNSQTopicRequired
	}
	if q.producer == nil {
		return ErrNSQAddrRequired
	}
	if len(msg.Headers) > 0 {
		return ErrUnsupported
	}

	if err := q.producer.Publish(destination, msg.Body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}
	return nil
}

// Consume reads messages from a topic on the configured channel and blocks
// until ctx is canceled. A handler error requeues the message.
func (q *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrNSQTopicRequired
	}
	if handler == nil {
		return ErrNSQHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.channel == "" {
		return ErrNSQChannelRequired
	}

	consumer, err := nsq.NewConsumer(source, co.channel, nsq.NewConfig())
	if err != nil {
		return fmt.Errorf("messaging: nsq consumer: %w", err)
	}

	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		return callHandlerWithRecover(ctx, "nsq", func() error {
			return handler(ctx, &nsqMessage{msg: m, topic: source})
		})
	}), co.concurrency)

	if len(q.cfg.LookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(q.cfg.LookupdAddrs)
	} else {
		err = consumer.ConnectToNSQD(q.cfg.NSQDAddr)
	}
	if err != nil {
		consumer.Stop()
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	q.mu.Lock()
	q.consumers = append(q.consumers, consumer)
	q.mu.Unlock()

	<-ctx.Done()

	consumer.Stop()
	<-consumer.StopChan

	return ctx.Err()
}

type nsqMessage struct {
	msg   *nsq.Message
	topic string
}

func (m *nsqMessage) Body() []byte { return m.msg.Body }

func (m *nsqMessage) Header(string) string { return "" }

func (m *nsqMessage) Source() string { return m.topic }

func (m *nsqMessage) Timestamp() time.Time { return time.Unix(0, m.msg.Timestamp) }
