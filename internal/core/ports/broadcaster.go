package ports

import (
	"context"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// StateChange is the payload pushed to subscribers after a commit. Versions
// are per-entity monotonic; a subscriber that already applied a newer version
// must discard the change.
type StateChange struct {
	EntityType    domain.EntityType `json:"entity_type"`
	EntityID      string            `json:"entity_id"`
	InstitutionID string            `json:"institution_id"`
	Version       int64             `json:"version"`
	NewState      interface{}       `json:"new_state"`
}

// Key is the per-entity topic, also used to shard fan-out workers so that
// changes to the same entity are published in order.
func (c StateChange) Key() string {
	return string(c.EntityType) + ":" + c.EntityID
}

// Broadcaster accepts committed state changes for asynchronous fan-out.
// Announce must only be called after the originating transaction committed.
type Broadcaster interface {
	Announce(change StateChange)
}

// Publisher delivers one state change to the pub/sub transport.
// Delivery is at-least-once; failures are retried by the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, change StateChange) error
}

// Subscriber attaches external collaborators to the pub/sub channels.
// The returned cancel function stops the subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan StateChange, func(), error)
}
