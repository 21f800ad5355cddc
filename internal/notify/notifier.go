// Package notify broadcasts committed configuration changes to the data
// plane over a Redis pub/sub channel.
//
// Delivery is best-effort and fire-and-forget: publishing happens strictly
// after the owning transaction commits, a slow or unreachable channel is
// abandoned after a short deadline, and failures are logged but never
// surfaced to the API caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Channel is the well-known pub/sub channel consumed by the data plane.
const Channel = "gateway:config:changes"

// publishTimeout bounds a single publish attempt. There is no retry; a
// publish that exceeds this deadline counts as zero deliveries.
const publishTimeout = 200 * time.Millisecond

// Entity types carried in change events. ServiceTarget and APIKey
// mutations are intentionally not broadcast.
const (
	EntityService  = "service"
	EntityRoute    = "route"
	EntityConsumer = "consumer"
	EntityPlugin   = "plugin"
)

// Actions carried in change events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is the wire schema for a configuration change. The encoding is
// compact JSON so independently-versioned data-plane consumers can decode
// it.
type Event struct {
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Metadata   map[string]any `json:"metadata"`
}

// Publisher is the transport capability used by the Notifier. It returns
// the number of subscribers that received the message.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// RedisPublisher publishes over a Redis connection.
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher wraps a Redis client as a Publisher.
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends the payload to the given channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return p.client.Publish(ctx, channel, payload).Result()
}

// Notifier serializes change events and publishes them on Channel.
type Notifier struct {
	pub     Publisher
	timeout time.Duration
}

// New builds a Notifier over the given transport. A nil publisher yields a
// notifier that drops every event, which keeps the API usable when no
// pub/sub backend is configured.
func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub, timeout: publishTimeout}
}

// ConfigChanged publishes a config_change event and returns the number of
// subscribers that received it. A zero count means either no subscribers or
// a failed publish; the caller cannot and should not distinguish the two.
func (n *Notifier) ConfigChanged(ctx context.Context, entityType, entityID, action string, metadata map[string]any) int64 {
	if n == nil || n.pub == nil {
		return 0
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := Event{
		EventType:  "config_change",
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Metadata:   metadata,
	}
	payload, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		log.WithError(errMarshal).WithFields(log.Fields{
			"entity_type": entityType,
			"entity_id":   entityID,
			"action":      action,
		}).Error("failed to encode config change event")
		return 0
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	delivered, errPublish := n.pub.Publish(publishCtx, Channel, payload)
	if errPublish != nil {
		log.WithError(errPublish).WithFields(log.Fields{
			"channel":     Channel,
			"entity_type": entityType,
			"entity_id":   entityID,
			"action":      action,
		}).Error("failed to publish config change event")
		return 0
	}

	log.WithFields(log.Fields{
		"channel":     Channel,
		"entity_type": entityType,
		"entity_id":   entityID,
		"action":      action,
		"subscribers": delivered,
	}).Info("config change event published")
	return delivered
}
