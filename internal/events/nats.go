package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// defaultFlushTimeout bounds Publish when ctx has no deadline.
const defaultFlushTimeout = 5 * time.Second

// NATSBus is a NATS connection used as a Publisher, a Subscriber or both.
type NATSBus struct {
	conn *nats.Conn
}

var (
	_ Publisher  = (*NATSBus)(nil)
	_ Subscriber = (*NATSBus)(nil)
)

func connect(url, name string, opts ...nats.Option) (*NATSBus, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name(name)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBus{conn: nc}, nil
}

// NewNATSPublisher connects a bus for the server's export events.
func NewNATSPublisher(url string) (*NATSBus, error) {
	return connect(url, "fleet-server")
}

// NewNATSSubscriber connects a bus that reconnects forever. Extra options
// such as disconnect or reconnect handlers are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSBus, error) {
	return connect(url, "fleet-watch", append([]nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)...)
}

// Publish sends event as JSON and waits for the server to acknowledge it.
func (b *NATSBus) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := b.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := b.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers messages on topic (NATS wildcards allowed). Messages
// that arrive while the buffer is full are dropped by the client. cancel
// unsubscribes and returns once the channel is closed.
func (b *NATSBus) Subscribe(topic string) (<-chan Envelope, func(), error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := b.conn.ChanSubscribe(topic, msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// Register the interest before anyone publishes.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	out := make(chan Envelope)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer close(out)
		for {
			select {
			case <-done:
				return
			case m := <-msgs:
				select {
				case out <- Envelope{Topic: m.Subject, Data: m.Data}:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
			<-exited
		})
	}
	return out, cancel, nil
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
