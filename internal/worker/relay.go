package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/repository"
)

// Publisher is the slice of the Kafka producer the relay needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Relay publishes committed outbox rows to Kafka, oldest first. At-least-once:
// a crash between publish and mark leaves the row unpublished and it is sent
// again; the delivery worker tolerates duplicates.
type Relay struct {
	Outbox       repository.OutboxRepository
	Producer     Publisher
	BatchSize    int
	PollInterval time.Duration
	Log          *zap.Logger
}

func NewRelay(outbox repository.OutboxRepository, producer Publisher, batchSize int, pollInterval time.Duration, log *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Relay{
		Outbox:       outbox,
		Producer:     producer,
		BatchSize:    batchSize,
		PollInterval: pollInterval,
		Log:          log,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	tick := time.NewTicker(r.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		evs, err := r.Outbox.FetchUnpublished(ctx, r.BatchSize)
		if err != nil {
			r.Log.Error("outbox fetch failed", zap.Error(err))
			return
		}
		if len(evs) == 0 {
			return
		}

		published := make([]int64, 0, len(evs))
		for _, ev := range evs {
			if err := r.Producer.Publish(ctx, ev.Topic, []byte(ev.AggregateID), ev.Payload); err != nil {
				r.Log.Error("outbox publish failed",
					zap.Int64("id", ev.ID), zap.String("topic", ev.Topic), zap.Error(err))
				break
			}
			published = append(published, ev.ID)
		}

		if len(published) > 0 {
			if err := r.Outbox.MarkPublished(ctx, published); err != nil {
				r.Log.Error("outbox mark published failed", zap.Error(err))
				return
			}
			metrics.OutboxPublishedTotal.Add(float64(len(published)))
		}

		if len(published) < len(evs) {
			// publish failure: back off until next tick
			return
		}
	}
}
