package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// startTestNATS runs an embedded NATS server for the test and returns its URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// newBusPair connects a publisher and a subscriber to a fresh server.
func newBusPair(t *testing.T, opts ...nats.Option) (pub, sub *NATSBus) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err = NewNATSSubscriber(url, opts...)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatal("channel closed early")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Envelope{}
}

func TestSubscribe_RoundTrip(t *testing.T) {
	pub, sub := newBusPair(t)

	ch, cancel, err := sub.Subscribe(TopicExports)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	if err := pub.Publish(context.Background(), TopicExportFailed, ExportFailed{ID: "exp-1", Error: "boom"}); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	env := receive(t, ch)
	got, err := Decode(env)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f, ok := got.(*ExportFailed); !ok || f.ID != "exp-1" || f.Error != "boom" {
		t.Errorf("got %#v", got)
	}
}

func TestSubscribe_WildcardKeepsOrder(t *testing.T) {
	pub, sub := newBusPair(t)

	ch, cancel, err := sub.Subscribe(TopicExports)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	topics := []string{TopicExportCompleted, TopicExportFailed, "fleet.export.started", "fleet.other"}
	for i, topic := range topics {
		if err := pub.Publish(context.Background(), topic, map[string]int{"n": i}); err != nil {
			t.Fatalf("publishing to %s: %v", topic, err)
		}
	}

	for i, want := range topics[:3] {
		env := receive(t, ch)
		if env.Topic != want || string(env.Data) != fmt.Sprintf(`{"n":%d}`, i) {
			t.Errorf("message %d = %s %s, want %s", i, env.Topic, env.Data, want)
		}
	}
	select {
	case env := <-ch:
		t.Errorf("unexpected message on %s", env.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	pub, sub := newBusPair(t)

	ch, cancel, err := sub.Subscribe(TopicExports)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	// Publish concurrently with cancel; neither may panic or block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_ = pub.Publish(context.Background(), TopicExportCompleted, ExportCompleted{})
		}
	}()
	cancel()
	cancel()
	<-done

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNewNATSSubscriber_AcceptsOptions(t *testing.T) {
	called := make(chan struct{}, 1)
	_, sub := newBusPair(t, nats.ClosedHandler(func(*nats.Conn) {
		select {
		case called <- struct{}{}:
		default:
		}
	}))

	if !sub.conn.IsConnected() {
		t.Fatal("expected subscriber to be connected")
	}
	sub.Close()
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("closed handler not invoked")
	}
}
