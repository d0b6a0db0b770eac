package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// Publisher delivers committed state changes over Redis pub/sub. Each change
// goes to its per-entity channel and to the institution channel, so a viewer
// can follow one record or a whole institution.
//
// Channel formats: entity:<entity_type>:<entity_id>, institution:<id>
type Publisher struct {
	client *redis.Client
}

var (
	_ ports.Publisher  = (*Publisher)(nil)
	_ ports.Subscriber = (*Publisher)(nil)
)

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends change to both channels. Delivery is at-least-once;
// subscribers discard stale versions.
func (p *Publisher) Publish(ctx context.Context, change ports.StateChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal state change: %w", err)
	}

	if err := p.client.Publish(ctx, "entity:"+change.Key(), payload).Err(); err != nil {
		return fmt.Errorf("publish entity channel: %w", err)
	}
	if change.InstitutionID != "" {
		if err := p.client.Publish(ctx, "institution:"+change.InstitutionID, payload).Err(); err != nil {
			return fmt.Errorf("publish institution channel: %w", err)
		}
	}
	return nil
}

// Subscribe attaches to a topic and decodes incoming changes. The returned
// cancel function tears the subscription down and closes the channel.
func (p *Publisher) Subscribe(ctx context.Context, topic string) (<-chan ports.StateChange, func(), error) {
	sub := p.client.Subscribe(ctx, topic)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan ports.StateChange)
	done := make(chan struct{})
	go pump(sub.Channel(), out, done)

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel, nil
}

// pump decodes raw pub/sub messages onto out until done or the source
// channel closes. Undecodable payloads are skipped. out is always closed
// on exit so range loops over the subscription terminate.
func pump(msgs <-chan *redis.Message, out chan<- ports.StateChange, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var change ports.StateChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				continue
			}
			select {
			case out <- change:
			case <-done:
				return
			}
		}
	}
}
