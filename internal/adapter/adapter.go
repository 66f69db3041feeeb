// Package adapter holds the channel adapter contract: one sender per concrete
// channel, reporting a three-way outcome the retry engine acts on.
package adapter

import (
	"context"

	"github.com/citymesh/message-gateway/internal/model"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetryable
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetryable:
		return "retryable"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Adapter sends one message payload to its downstream channel.
// Transport errors map to OutcomeRetryable; the returned error is diagnostic
// only and may be non-nil for both failure outcomes.
type Adapter interface {
	Channel() model.MessageType
	Send(ctx context.Context, content []byte) (Outcome, error)
}
