// Package delivery orchestrates the path from a normalized request to a
// terminally recorded delivery: message creation, sync/async dispatch, generic
// channel resolution and batch aggregation.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
	"github.com/citymesh/message-gateway/internal/processor"
	"github.com/citymesh/message-gateway/internal/util"
)

var (
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrEmptyBatch       = errors.New("empty batch")
	ErrDeliveryNotFound = errors.New("delivery not found")
)

// Store is the message/history store the delivery pipeline needs.
// Implemented by repository.DeliveryStore.
type Store interface {
	CreateMessages(ctx context.Context, msgs []model.Message, events []model.OutboxEvent) error
	Resolve(ctx context.Context, h model.History) error
	Retarget(ctx context.Context, deliveryID string, t model.MessageType, content []byte) error
	MessageByDeliveryID(ctx context.Context, deliveryID string) (*model.Message, error)
	MessagesByMessageID(ctx context.Context, messageID string) ([]model.Message, error)
	MessagesByBatchID(ctx context.Context, batchID string) ([]model.Message, error)
	HistoryByDeliveryID(ctx context.Context, deliveryID string) (*model.History, error)
	HistoryByMessageID(ctx context.Context, messageID string) ([]model.History, error)
	HistoryByBatchID(ctx context.Context, batchID string) ([]model.History, error)
}

// Request is the normalized form every inbound request shape converges on:
// one channel type, one recipient, one typed content payload.
type Request struct {
	Type    model.MessageType
	Party   string // recipient identifier: party id, MSISDN, email address or slack channel
	Content any
}

// Options carries provenance and the sync/async choice.
type Options struct {
	MunicipalityID string
	Origin         string
	Issuer         string
	Async          bool
}

type Router struct {
	store   Store
	procs   *processor.Set
	generic *Generic
	agg     *Aggregator
	policy  config.MessagePolicyConfig
	log     *zap.Logger
}

func NewRouter(store Store, procs *processor.Set, generic *Generic, policy config.MessagePolicyConfig, log *zap.Logger) *Router {
	return &Router{
		store:   store,
		procs:   procs,
		generic: generic,
		agg:     NewAggregator(store),
		policy:  policy,
		log:     log,
	}
}

// Aggregator exposes the read-side projections for status queries.
func (r *Router) Aggregator() *Aggregator { return r.agg }

// Send handles a single-recipient request. Synchronous callers block until the
// delivery is terminal; asynchronous callers get the pending result back once
// the message row and its delivery event are committed.
func (r *Router) Send(ctx context.Context, req Request, opt Options) (model.DeliveryResult, error) {
	msg, err := r.newMessage(req, opt, nil, 0)
	if err != nil {
		return model.DeliveryResult{}, err
	}

	if opt.Async {
		ev, err := newEvent(msg)
		if err != nil {
			return model.DeliveryResult{}, err
		}
		if err := r.store.CreateMessages(ctx, []model.Message{msg}, []model.OutboxEvent{ev}); err != nil {
			return model.DeliveryResult{}, fmt.Errorf("persist message: %w", err)
		}
		return msg.Result(), nil
	}

	if err := r.store.CreateMessages(ctx, []model.Message{msg}, nil); err != nil {
		return model.DeliveryResult{}, fmt.Errorf("persist message: %w", err)
	}

	status, err := r.Deliver(ctx, msg)
	if err != nil {
		return model.DeliveryResult{}, err
	}
	res := msg.Result()
	if status != "" {
		res.Status = status
	}
	return res, nil
}

// SendBatch handles a multi-recipient request. Recipients that fail
// normalization are recorded as immediately failed history entries and never
// reach a processor; the rest are delivered independently.
func (r *Router) SendBatch(ctx context.Context, reqs []Request, opt Options) (model.BatchResult, error) {
	if len(reqs) == 0 {
		return model.BatchResult{}, ErrEmptyBatch
	}

	batchID := uuid.NewString()

	msgs := make([]model.Message, 0, len(reqs))
	var events []model.OutboxEvent
	var invalid []model.Message

	for i, req := range reqs {
		msg, err := r.newMessage(req, opt, &batchID, i)
		if err != nil {
			r.log.Info("batch member rejected",
				zap.String("batch_id", batchID),
				zap.Int("seq", i),
				zap.Error(err))
			msgs = append(msgs, msg)
			invalid = append(invalid, msg)
			continue
		}
		msgs = append(msgs, msg)
		if opt.Async {
			ev, err := newEvent(msg)
			if err != nil {
				return model.BatchResult{}, err
			}
			events = append(events, ev)
		}
	}

	if err := r.store.CreateMessages(ctx, msgs, events); err != nil {
		return model.BatchResult{}, fmt.Errorf("persist batch: %w", err)
	}

	// Rejected members go terminal right away, with zero attempts.
	now := time.Now()
	for _, m := range invalid {
		if err := r.store.Resolve(ctx, m.Resolved(model.StatusFailed, now)); err != nil {
			return model.BatchResult{}, fmt.Errorf("resolve rejected member: %w", err)
		}
	}

	if !opt.Async {
		var wg sync.WaitGroup
		for _, m := range msgs {
			if m.Status.Terminal() || contains(invalid, m.DeliveryID) {
				continue
			}
			wg.Add(1)
			go func(m model.Message) {
				defer wg.Done()
				if _, err := r.Deliver(ctx, m); err != nil {
					r.log.Error("batch member delivery failed",
						zap.String("delivery_id", m.DeliveryID), zap.Error(err))
				}
			}(m)
		}
		wg.Wait()
	}

	return r.agg.Batch(ctx, batchID)
}

// Deliver routes a pending message to its channel processor, or through the
// generic resolver for MESSAGE-type deliveries. Blocks until terminal.
func (r *Router) Deliver(ctx context.Context, msg model.Message) (model.MessageStatus, error) {
	if msg.Type == model.TypeMessage {
		return r.generic.Deliver(ctx, msg)
	}
	p, ok := r.procs.For(msg.Type)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, msg.Type)
	}
	return p.Deliver(ctx, msg)
}

func (r *Router) newMessage(req Request, opt Options, batchID *string, seq int) (model.Message, error) {
	msg := model.Message{
		MessageID:      uuid.NewString(),
		DeliveryID:     uuid.NewString(),
		BatchID:        batchID,
		BatchSeq:       seq,
		Type:           req.Type,
		OriginalType:   req.Type,
		Status:         model.StatusPending,
		MunicipalityID: opt.MunicipalityID,
		Origin:         opt.Origin,
		Issuer:         opt.Issuer,
		CreatedAt:      time.Now(),
	}

	if err := r.normalize(&req); err != nil {
		// content may be half-built; keep whatever marshals for the audit trail
		if b, merr := json.Marshal(req.Content); merr == nil {
			msg.Content = b
		}
		return msg, err
	}

	b, err := model.EncodeContent(req.Content)
	if err != nil {
		return msg, err
	}
	msg.Content = b
	return msg, nil
}

// normalize validates the recipient per channel and rewrites channel-specific
// fields (phone prefixes) in place.
func (r *Router) normalize(req *Request) error {
	switch req.Type {
	case model.TypeSMS:
		c, ok := req.Content.(model.SMSContent)
		if !ok {
			return fmt.Errorf("%w: sms content", ErrInvalidRecipient)
		}
		c.Recipient = util.NormalizePhone(c.Recipient, r.policy.DefaultCountryPrefix)
		if !util.ValidPhone(c.Recipient) {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, c.Recipient)
		}
		req.Content = c
		req.Party = c.Recipient
		return nil

	case model.TypeEmail:
		c, ok := req.Content.(model.EmailContent)
		if !ok || !strings.Contains(c.Recipient, "@") {
			return fmt.Errorf("%w: email address", ErrInvalidRecipient)
		}
		req.Party = c.Recipient
		return nil

	case model.TypeSlack:
		c, ok := req.Content.(model.SlackContent)
		if !ok || strings.TrimSpace(c.Channel) == "" {
			return fmt.Errorf("%w: slack channel", ErrInvalidRecipient)
		}
		req.Party = c.Channel
		return nil

	case model.TypeDigitalMail, model.TypeWebMessage, model.TypeSnailMail,
		model.TypeLetter, model.TypeDigitalInvoice, model.TypeMessage:
		if _, err := uuid.Parse(req.Party); err != nil {
			return fmt.Errorf("%w: party id %q", ErrInvalidRecipient, req.Party)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownChannel, req.Type)
	}
}

func newEvent(msg model.Message) (model.OutboxEvent, error) {
	payload, err := json.Marshal(model.DeliveryEvent{
		DeliveryID: msg.DeliveryID,
		MessageID:  msg.MessageID,
		Type:       msg.Type,
	})
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("marshal event: %w", err)
	}
	return model.OutboxEvent{
		Aggregate:   "message",
		AggregateID: msg.DeliveryID,
		Topic:       msg.Type.Topic(),
		Payload:     payload,
	}, nil
}

func contains(msgs []model.Message, deliveryID string) bool {
	for _, m := range msgs {
		if m.DeliveryID == deliveryID {
			return true
		}
	}
	return false
}
