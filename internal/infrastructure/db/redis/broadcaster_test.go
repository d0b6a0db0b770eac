package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

func rawMessage(t *testing.T, change ports.StateChange) *redis.Message {
	t.Helper()
	payload, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &redis.Message{Payload: string(payload)}
}

func recv(t *testing.T, out <-chan ports.StateChange) (ports.StateChange, bool) {
	t.Helper()
	select {
	case change, ok := <-out:
		return change, ok
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting on subscription channel")
		return ports.StateChange{}, false
	}
}

func TestPump_DecodesInOrder(t *testing.T) {
	msgs := make(chan *redis.Message, 2)
	out := make(chan ports.StateChange)
	done := make(chan struct{})
	defer close(done)

	msgs <- rawMessage(t, ports.StateChange{EntityType: domain.EntityAccount, EntityID: "ACC-1", Version: 1})
	msgs <- rawMessage(t, ports.StateChange{EntityType: domain.EntityAccount, EntityID: "ACC-1", Version: 2})

	go pump(msgs, out, done)

	for want := int64(1); want <= 2; want++ {
		change, ok := recv(t, out)
		if !ok {
			t.Fatalf("channel closed before version %d", want)
		}
		if change.EntityID != "ACC-1" || change.Version != want {
			t.Fatalf("got %s v%d, want ACC-1 v%d", change.EntityID, change.Version, want)
		}
	}
}

func TestPump_SkipsUndecodablePayloads(t *testing.T) {
	msgs := make(chan *redis.Message, 2)
	out := make(chan ports.StateChange)
	done := make(chan struct{})
	defer close(done)

	msgs <- &redis.Message{Payload: "not json"}
	msgs <- rawMessage(t, ports.StateChange{EntityType: domain.EntityLoanRequest, EntityID: "LN-1", Version: 3})

	go pump(msgs, out, done)

	change, ok := recv(t, out)
	if !ok {
		t.Fatalf("channel closed before the valid message arrived")
	}
	if change.EntityID != "LN-1" || change.Version != 3 {
		t.Fatalf("got %s v%d, want LN-1 v3", change.EntityID, change.Version)
	}
}

func TestPump_ClosesOutWhenSourceCloses(t *testing.T) {
	msgs := make(chan *redis.Message)
	out := make(chan ports.StateChange)
	done := make(chan struct{})
	defer close(done)

	go pump(msgs, out, done)
	close(msgs)

	if _, ok := recv(t, out); ok {
		t.Fatalf("expected closed channel after source closed")
	}
}

func TestPump_CancelClosesOut(t *testing.T) {
	msgs := make(chan *redis.Message)
	out := make(chan ports.StateChange)
	done := make(chan struct{})

	go pump(msgs, out, done)
	close(done)

	if _, ok := recv(t, out); ok {
		t.Fatalf("expected closed channel after cancellation")
	}
}
