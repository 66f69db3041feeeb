package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/model"
)

type memOutbox struct {
	events []model.OutboxEvent
	marked []int64
}

func (o *memOutbox) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	o.events = append(o.events, model.OutboxEvent{
		ID:          int64(len(o.events) + 1),
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		Topic:       topic,
		Payload:     payload,
	})
	return nil
}

func (o *memOutbox) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, ev := range o.events {
		if ev.PublishedAt == nil {
			out = append(out, ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (o *memOutbox) MarkPublished(ctx context.Context, ids []int64) error {
	o.marked = append(o.marked, ids...)
	for _, id := range ids {
		for i := range o.events {
			if o.events[i].ID == id {
				at := o.events[i].CreatedAt
				o.events[i].PublishedAt = &at
			}
		}
	}
	return nil
}

type recordingPublisher struct {
	topics []string
	failOn string // topic that fails, if any
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func seedOutbox(t *testing.T, o *memOutbox, topics ...string) {
	t.Helper()
	for i, topic := range topics {
		require.NoError(t, o.Insert(context.Background(), nil, "message", "d-"+topic, topic, []byte(`{"n":`+string(rune('0'+i))+`}`)))
	}
}

func TestRelayDrainPublishesInOrder(t *testing.T) {
	outbox := &memOutbox{}
	seedOutbox(t, outbox, "delivery.sms", "delivery.email", "delivery.letter")

	pub := &recordingPublisher{}
	r := NewRelay(outbox, pub, 100, 0, zap.NewNop())

	r.drain(context.Background())

	assert.Equal(t, []string{"delivery.sms", "delivery.email", "delivery.letter"}, pub.topics)
	assert.Equal(t, []int64{1, 2, 3}, outbox.marked)

	// nothing left unpublished
	evs, err := outbox.FetchUnpublished(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestRelayDrainRespectsBatchSize(t *testing.T) {
	outbox := &memOutbox{}
	seedOutbox(t, outbox, "delivery.sms", "delivery.sms", "delivery.sms", "delivery.sms", "delivery.sms")

	pub := &recordingPublisher{}
	r := NewRelay(outbox, pub, 2, 0, zap.NewNop())

	// drain loops fetches until the table is empty
	r.drain(context.Background())

	assert.Len(t, pub.topics, 5)
	assert.Len(t, outbox.marked, 5)
}

func TestRelayPublishFailureMarksOnlyPublished(t *testing.T) {
	outbox := &memOutbox{}
	seedOutbox(t, outbox, "delivery.sms", "delivery.email", "delivery.letter")

	pub := &recordingPublisher{failOn: "delivery.email"}
	r := NewRelay(outbox, pub, 100, 0, zap.NewNop())

	r.drain(context.Background())

	// only the event before the failure was published and marked
	assert.Equal(t, []string{"delivery.sms"}, pub.topics)
	assert.Equal(t, []int64{1}, outbox.marked)

	// the failed event stays unpublished for the next tick
	evs, err := outbox.FetchUnpublished(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "delivery.email", evs[0].Topic)
}
