package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfdfinance/finance-core/internal/api/metrics"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

const (
	defaultWorkers  = 8
	channelBuffer   = 256
	publishAttempts = 3
	publishBackoff  = 100 * time.Millisecond
)

// Dispatcher fans committed state changes out to a fixed set of workers
// using consistent hashing on the entity key, guaranteeing per-entity
// publish ordering. Delivery is at-least-once: each publish is retried a
// bounded number of times before the change is dropped and counted.
type Dispatcher struct {
	workers   []chan ports.StateChange
	publisher ports.Publisher
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.Publisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.StateChange, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.StateChange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Announce sends a change to the worker responsible for its entity.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Announce(change ports.StateChange) {
	idx := d.shardIndex(change.Key())
	d.workers[idx] <- change
	metrics.BroadcastQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps an entity key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			d.publish(ctx, id, change)
			metrics.BroadcastQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}

// publish retries transient failures with a linear backoff. Failing every
// attempt drops the change; the next change for the same entity carries a
// newer version, which is the contract subscribers rely on.
func (d *Dispatcher) publish(ctx context.Context, workerID int, change ports.StateChange) {
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = d.publisher.Publish(ctx, change); err == nil {
			metrics.BroadcastPublishedTotal.WithLabelValues(string(change.EntityType)).Inc()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * publishBackoff):
		}
	}

	metrics.BroadcastErrorsTotal.Inc()
	d.log.Error().Err(err).
		Str("entity", change.Key()).
		Int64("version", change.Version).
		Int("worker_id", workerID).
		Msg("state change publish failed")
}
