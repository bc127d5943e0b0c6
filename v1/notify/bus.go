package notify

import (
	"context"
	"encoding/json"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/mirkobrombin/go-quorlock/v1/eventbus"
)

// DefaultTopic is the bus topic lock events are published to when no topic is
// configured.
const DefaultTopic = "quorlock:events"

// wireEvent is the JSON shape published to the bus. Errors are flattened to
// strings so consumers in other processes can decode them.
type wireEvent struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Type     Type          `json:"type"`
	Op       string        `json:"op,omitempty"`
	Resource string        `json:"resource"`
	Token    string        `json:"token,omitempty"`
	Validity time.Duration `json:"validity,omitempty"`
	TTL      time.Duration `json:"ttl,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Store    string        `json:"store,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Bus publishes lifecycle events to an eventbus topic as JSON so consumers on
// other nodes (dashboards, audit logs) can observe lock activity. Publish
// failures are dropped: the observer channel is best-effort and must never
// affect the lock operation that produced the event.
type Bus struct {
	bus   eventbus.Bus
	topic string
}

// NewBus returns a Bus notifier publishing to topic on bus. An empty topic
// defaults to DefaultTopic.
func NewBus(bus eventbus.Bus, topic string) *Bus {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Bus{bus: bus, topic: topic}
}

// Notify implements Notifier.
func (b *Bus) Notify(ctx context.Context, ev Event) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return
	}
	we := wireEvent{
		ID:       id,
		Time:     time.Now().UTC(),
		Type:     ev.Type,
		Op:       ev.Op,
		Resource: ev.Resource,
		Token:    ev.Token,
		Validity: ev.Validity,
		TTL:      ev.TTL,
		Attempt:  ev.Attempt,
		Store:    ev.Store,
	}
	if ev.Err != nil {
		we.Error = ev.Err.Error()
	}
	data, err := json.Marshal(we)
	if err != nil {
		return
	}
	_ = b.bus.Publish(ctx, b.topic, data)
}
