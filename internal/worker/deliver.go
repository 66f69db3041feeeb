// Package worker holds the background consumers: the delivery worker that
// executes queued deliveries and the outbox relay that publishes committed
// delivery events to Kafka.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/kafka"
	"github.com/citymesh/message-gateway/internal/model"
)

// fetchRetryDelay throttles the fetch loop after a broker error.
const fetchRetryDelay = time.Second

// EventSource is the slice of the Kafka consumer the worker needs.
type EventSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Deliver consumes delivery events and runs each on its own goroutine. The
// retry loop blocks its goroutine through the whole backoff window, so only
// the number of in-flight deliveries is bounded, never their duration.
type Deliver struct {
	Consumer    EventSource
	Store       delivery.Store
	Router      *delivery.Router
	MaxInFlight int
	Log         *zap.Logger
}

func NewDeliver(consumer EventSource, store delivery.Store, router *delivery.Router, maxInFlight int, log *zap.Logger) *Deliver {
	if maxInFlight <= 0 {
		maxInFlight = 256
	}
	return &Deliver{
		Consumer:    consumer,
		Store:       store,
		Router:      router,
		MaxInFlight: maxInFlight,
		Log:         log,
	}
}

// Run fetches events until ctx is cancelled. Events are committed only after
// terminal resolution; a crash or store failure leaves the event uncommitted
// and the message pending, so redelivery resumes the same delivery.
func (w *Deliver) Run(ctx context.Context) error {
	sem := make(chan struct{}, w.MaxInFlight)

	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Error("kafka fetch failed", zap.Error(err))
			// back off so a down broker does not spin the loop
			select {
			case <-time.After(fetchRetryDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		go func(m kafka.Message) {
			defer func() { <-sem }()
			w.processOne(ctx, m)
		}(m)
	}
}

func (w *Deliver) processOne(ctx context.Context, m kafka.Message) {
	var ev model.DeliveryEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.DeliveryID == "" {
		// poison event: commit and skip
		w.Log.Warn("bad delivery event", zap.Error(err))
		_ = w.Consumer.Commit(ctx, m)
		return
	}

	// Delivery must run to terminal resolution even while shutting down, so
	// it is detached from the consumer's ctx.
	dctx := context.WithoutCancel(ctx)

	msg, err := w.Store.MessageByDeliveryID(dctx, ev.DeliveryID)
	if err != nil {
		w.Log.Error("load message failed; leaving event for redelivery",
			zap.String("delivery_id", ev.DeliveryID), zap.Error(err))
		return
	}
	if msg == nil {
		// already resolved: duplicate event
		_ = w.Consumer.Commit(ctx, m)
		return
	}

	status, err := w.Router.Deliver(dctx, *msg)
	if err != nil {
		w.Log.Error("delivery failed mid-flight; leaving event for redelivery",
			zap.String("delivery_id", ev.DeliveryID), zap.Error(err))
		return
	}

	w.Log.Info("delivery resolved",
		zap.String("delivery_id", ev.DeliveryID),
		zap.String("channel", msg.Type.String()),
		zap.String("status", status.String()))

	if err := w.Consumer.Commit(ctx, m); err != nil {
		w.Log.Error("kafka commit failed", zap.Error(err))
	}
}
