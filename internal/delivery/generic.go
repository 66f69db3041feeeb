package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/contact"
	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/model"
	"github.com/citymesh/message-gateway/internal/processor"
	"github.com/citymesh/message-gateway/internal/util"
)

// Generic resolves MESSAGE-type deliveries: the effective channel comes from
// the recipient's contact settings, or the delivery goes terminal without any
// adapter call when no channel is available.
type Generic struct {
	contacts contact.Resolver
	store    Store
	procs    *processor.Set
	policy   config.MessagePolicyConfig
	log      *zap.Logger
}

func NewGeneric(contacts contact.Resolver, store Store, procs *processor.Set, policy config.MessagePolicyConfig, log *zap.Logger) *Generic {
	return &Generic{contacts: contacts, store: store, procs: procs, policy: policy, log: log}
}

// Deliver runs a generic message to terminal resolution. An error from the
// contact resolver leaves the message pending so the event can be redelivered.
func (g *Generic) Deliver(ctx context.Context, msg model.Message) (model.MessageStatus, error) {
	var content model.MessageContent
	if err := model.DecodeContent(msg.Content, &content); err != nil {
		// unreadable payload can never be delivered
		return g.shortCircuit(ctx, msg, model.StatusFailed)
	}

	channels, err := g.contacts.Resolve(ctx, content.PartyID)
	if err != nil {
		return "", fmt.Errorf("resolve contact settings: %w", err)
	}

	if len(channels) == 0 {
		return g.shortCircuit(ctx, msg, model.StatusNoContactSettingsFound)
	}

	target, ok := pickChannel(channels)
	if !ok {
		return g.shortCircuit(ctx, msg, model.StatusNoContactWanted)
	}

	retargeted, newContent, err := g.retarget(msg, content, target)
	if err != nil {
		return "", err
	}
	if err := g.store.Retarget(ctx, msg.DeliveryID, retargeted.Type, newContent); err != nil {
		return "", fmt.Errorf("retarget delivery %s: %w", msg.DeliveryID, err)
	}

	p, ok := g.procs.For(retargeted.Type)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, retargeted.Type)
	}

	g.log.Debug("generic message retargeted",
		zap.String("delivery_id", msg.DeliveryID),
		zap.String("channel", retargeted.Type.String()))

	return p.Deliver(ctx, retargeted)
}

// retarget builds the concrete-channel twin of the generic message. The
// original MESSAGE type stays in OriginalType for history and statistics.
func (g *Generic) retarget(msg model.Message, content model.MessageContent, target model.ContactChannel) (model.Message, []byte, error) {
	var (
		payload any
		t       model.MessageType
	)

	switch target.Method {
	case model.ContactMethodEmail:
		senderName := content.SenderName
		senderAddress := content.SenderAddress
		if senderName == "" {
			senderName = g.policy.DefaultSenderName
		}
		if senderAddress == "" {
			senderAddress = g.policy.DefaultSenderAddress
		}
		t = model.TypeEmail
		payload = model.EmailContent{
			SenderName:    senderName,
			SenderAddress: senderAddress,
			Recipient:     target.Destination,
			Subject:       content.Subject,
			Body:          content.Body,
		}

	default: // SMS
		t = model.TypeSMS
		payload = model.SMSContent{
			Sender:    g.policy.SMSSenderName,
			Recipient: util.NormalizePhone(target.Destination, g.policy.DefaultCountryPrefix),
			Body:      content.Body,
		}
	}

	b, err := model.EncodeContent(payload)
	if err != nil {
		return model.Message{}, nil, err
	}

	out := msg
	out.Type = t
	out.Content = b
	return out, b, nil
}

func (g *Generic) shortCircuit(ctx context.Context, msg model.Message, status model.MessageStatus) (model.MessageStatus, error) {
	if err := g.store.Resolve(ctx, msg.Resolved(status, time.Now())); err != nil {
		return "", fmt.Errorf("resolve delivery %s: %w", msg.DeliveryID, err)
	}
	metrics.DeliveriesTotal.WithLabelValues(msg.Type.String(), status.String()).Inc()
	return status, nil
}

// pickChannel returns the first enabled, dispatchable channel in preference
// order, with its method in canonical form so retargeting can switch on it.
func pickChannel(channels []model.ContactChannel) (model.ContactChannel, bool) {
	for _, c := range channels {
		if c.Dispatchable() {
			c.Method = c.Method.Normalized()
			return c, true
		}
	}
	return model.ContactChannel{}, false
}
