package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// recordingPublisher captures published payloads.
type recordingPublisher struct {
	channel  string
	payloads [][]byte
	err      error
	count    int64
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	p.channel = channel
	p.payloads = append(p.payloads, payload)
	if p.err != nil {
		return 0, p.err
	}
	return p.count, nil
}

func TestConfigChanged_PublishesEvent(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{count: 2}
	n := New(pub)

	delivered := n.ConfigChanged(context.Background(), EntityService, "svc-1", ActionCreated, map[string]any{"name": "users"})
	if delivered != 2 {
		t.Fatalf("expected 2 subscribers, got %d", delivered)
	}
	if pub.channel != Channel {
		t.Fatalf("expected channel %q, got %q", Channel, pub.channel)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.payloads))
	}

	var event Event
	if errDecode := json.Unmarshal(pub.payloads[0], &event); errDecode != nil {
		t.Fatalf("decode event: %v", errDecode)
	}
	if event.EventType != "config_change" {
		t.Fatalf("expected config_change event type, got %q", event.EventType)
	}
	if event.EntityType != EntityService || event.EntityID != "svc-1" || event.Action != ActionCreated {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Metadata["name"] != "users" {
		t.Fatalf("expected metadata carried, got %v", event.Metadata)
	}
}

func TestConfigChanged_PublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("broker down")}
	n := New(pub)

	delivered := n.ConfigChanged(context.Background(), EntityRoute, "rt-1", ActionDeleted, nil)
	if delivered != 0 {
		t.Fatalf("expected 0 on publish failure, got %d", delivered)
	}
}

func TestConfigChanged_NilNotifierAndPublisher(t *testing.T) {
	t.Parallel()

	var n *Notifier
	if got := n.ConfigChanged(context.Background(), EntityPlugin, "pl-1", ActionUpdated, nil); got != 0 {
		t.Fatalf("expected nil notifier to drop event, got %d", got)
	}
	if got := New(nil).ConfigChanged(context.Background(), EntityPlugin, "pl-1", ActionUpdated, nil); got != 0 {
		t.Fatalf("expected nil publisher to drop event, got %d", got)
	}
}

func TestConfigChanged_SurvivesCancelledRequestContext(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{count: 1}
	n := New(pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivered := n.ConfigChanged(ctx, EntityConsumer, "cn-1", ActionCreated, nil)
	if delivered != 1 {
		t.Fatalf("expected publish to proceed after request context cancel, got %d", delivered)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.payloads))
	}
}

// slowPublisher blocks until its context is done.
type slowPublisher struct{}

func (slowPublisher) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestConfigChanged_SlowPublishTimesOut(t *testing.T) {
	t.Parallel()

	n := New(slowPublisher{})
	start := time.Now()
	delivered := n.ConfigChanged(context.Background(), EntityService, "svc-1", ActionUpdated, nil)
	elapsed := time.Since(start)

	if delivered != 0 {
		t.Fatalf("expected 0 on timeout, got %d", delivered)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("publish did not respect the deadline, took %s", elapsed)
	}
}
