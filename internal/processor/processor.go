// Package processor implements the per-channel retry engine. Every delivery
// handed to a Processor ends terminal: sent, rejected, or retry-exhausted,
// with the message row atomically replaced by its history row.
package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/adapter"
	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/model"
)

// Store is the slice of the message store the retry engine needs.
type Store interface {
	// IncrementAttempt bumps attempt_count and returns the new value, or 0 if
	// the message row no longer exists.
	IncrementAttempt(ctx context.Context, deliveryID string) (int, error)
	Resolve(ctx context.Context, h model.History) error
}

type Processor struct {
	adapter adapter.Adapter
	store   Store
	retry   config.RetryConfig
	log     *zap.Logger
}

func New(a adapter.Adapter, store Store, retry config.RetryConfig, log *zap.Logger) *Processor {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 3
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay < retry.InitialDelay {
		retry.MaxDelay = retry.InitialDelay
	}
	return &Processor{adapter: a, store: store, retry: retry, log: log}
}

func (p *Processor) Channel() model.MessageType { return p.adapter.Channel() }

// Deliver runs the message to terminal resolution, blocking through the whole
// backoff window. The returned status is the terminal status written to
// history, or empty when the delivery was already resolved (duplicate event).
// An error means the store failed mid-flight and the message is still pending.
func (p *Processor) Deliver(ctx context.Context, msg model.Message) (model.MessageStatus, error) {
	delay := p.retry.InitialDelay

	for {
		n, err := p.store.IncrementAttempt(ctx, msg.DeliveryID)
		if err != nil {
			return "", fmt.Errorf("increment attempt: %w", err)
		}
		if n == 0 {
			// row gone: a duplicate event for an already resolved delivery
			return "", nil
		}
		msg.AttemptCount = n

		out, serr := p.adapter.Send(ctx, msg.Content)
		metrics.AttemptsTotal.WithLabelValues(p.Channel().String(), out.String()).Inc()

		switch out {
		case adapter.OutcomeOK:
			return p.resolve(ctx, msg, model.StatusSent)

		case adapter.OutcomePermanent:
			p.log.Info("delivery rejected",
				zap.String("delivery_id", msg.DeliveryID),
				zap.String("channel", p.Channel().String()),
				zap.Error(serr))
			return p.resolve(ctx, msg, model.StatusNotSent)

		default:
			if n >= p.retry.MaxAttempts {
				p.log.Warn("delivery attempts exhausted",
					zap.String("delivery_id", msg.DeliveryID),
					zap.String("channel", p.Channel().String()),
					zap.Int("attempts", n),
					zap.Error(serr))
				return p.resolve(ctx, msg, model.StatusFailed)
			}

			p.log.Debug("delivery attempt failed, backing off",
				zap.String("delivery_id", msg.DeliveryID),
				zap.Int("attempt", n),
				zap.Duration("delay", delay),
				zap.Error(serr))

			// Deliberate blocking wait: the retry loop owns its goroutine and a
			// caller disconnect must not stop delivery, so the sleep does not
			// watch ctx.
			time.Sleep(delay)
			delay *= 2
			if delay > p.retry.MaxDelay {
				delay = p.retry.MaxDelay
			}
		}
	}
}

func (p *Processor) resolve(ctx context.Context, msg model.Message, status model.MessageStatus) (model.MessageStatus, error) {
	if err := p.store.Resolve(ctx, msg.Resolved(status, time.Now())); err != nil {
		return "", fmt.Errorf("resolve delivery %s: %w", msg.DeliveryID, err)
	}
	metrics.DeliveriesTotal.WithLabelValues(p.Channel().String(), status.String()).Inc()
	return status, nil
}
