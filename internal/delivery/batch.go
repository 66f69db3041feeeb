package delivery

import (
	"context"
	"fmt"
	"sort"

	"github.com/citymesh/message-gateway/internal/model"
)

// Aggregator correlates per-delivery state into the response projections.
// Pending deliveries come from the messages table, resolved ones from history;
// no recipient is ever dropped.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Batch projects all deliveries of a batch, in recipient order.
func (a *Aggregator) Batch(ctx context.Context, batchID string) (model.BatchResult, error) {
	msgs, err := a.store.MessagesByBatchID(ctx, batchID)
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("batch messages: %w", err)
	}
	hist, err := a.store.HistoryByBatchID(ctx, batchID)
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("batch history: %w", err)
	}

	type entry struct {
		seq int
		res model.DeliveryResult
	}
	entries := make([]entry, 0, len(msgs)+len(hist))
	municipality := ""

	for _, m := range msgs {
		entries = append(entries, entry{m.BatchSeq, m.Result()})
		municipality = m.MunicipalityID
	}
	for _, h := range hist {
		entries = append(entries, entry{h.BatchSeq, h.Result()})
		municipality = h.MunicipalityID
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := model.BatchResult{BatchID: batchID, MunicipalityID: municipality}
	for _, e := range entries {
		out.Deliveries = append(out.Deliveries, e.res)
	}
	return out, nil
}

// Delivery projects one delivery, terminal or pending.
func (a *Aggregator) Delivery(ctx context.Context, deliveryID string) (model.DeliveryResult, error) {
	if h, err := a.store.HistoryByDeliveryID(ctx, deliveryID); err != nil {
		return model.DeliveryResult{}, err
	} else if h != nil {
		return h.Result(), nil
	}
	if m, err := a.store.MessageByDeliveryID(ctx, deliveryID); err != nil {
		return model.DeliveryResult{}, err
	} else if m != nil {
		return m.Result(), nil
	}
	return model.DeliveryResult{}, ErrDeliveryNotFound
}

// Message projects all deliveries spawned from one message id.
func (a *Aggregator) Message(ctx context.Context, messageID string) ([]model.DeliveryResult, error) {
	msgs, err := a.store.MessagesByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	hist, err := a.store.HistoryByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var out []model.DeliveryResult
	for _, h := range hist {
		out = append(out, h.Result())
	}
	for _, m := range msgs {
		out = append(out, m.Result())
	}
	if len(out) == 0 {
		return nil, ErrDeliveryNotFound
	}
	return out, nil
}
