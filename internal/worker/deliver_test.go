package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/adapter"
	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/delivery/deliverytest"
	"github.com/citymesh/message-gateway/internal/kafka"
	"github.com/citymesh/message-gateway/internal/model"
	"github.com/citymesh/message-gateway/internal/processor"
)

type okAdapter struct {
	mu    sync.Mutex
	calls int
}

func (a *okAdapter) Channel() model.MessageType { return model.TypeSMS }

func (a *okAdapter) Send(ctx context.Context, content []byte) (adapter.Outcome, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return adapter.OutcomeOK, nil
}

type committedSource struct {
	committed []kafka.Message
}

func (c *committedSource) Fetch(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (c *committedSource) Commit(ctx context.Context, m kafka.Message) error {
	c.committed = append(c.committed, m)
	return nil
}

func newWorker(store *deliverytest.Store, src *committedSource) *Deliver {
	a := &okAdapter{}
	retry := config.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	set := processor.NewSet(processor.New(a, store, retry, zap.NewNop()))
	policy := config.MessagePolicyConfig{DefaultCountryPrefix: "+46"}
	generic := delivery.NewGeneric(nil, store, set, policy, zap.NewNop())
	router := delivery.NewRouter(store, set, generic, policy, zap.NewNop())
	return NewDeliver(src, store, router, 4, zap.NewNop())
}

func seedMessage(t *testing.T, store *deliverytest.Store, deliveryID string) {
	t.Helper()
	content, err := model.EncodeContent(model.SMSContent{Recipient: "+46701234567", Body: "hi"})
	require.NoError(t, err)
	msg := model.Message{
		MessageID:      deliveryID + "-m",
		DeliveryID:     deliveryID,
		Type:           model.TypeSMS,
		OriginalType:   model.TypeSMS,
		Status:         model.StatusPending,
		Content:        content,
		MunicipalityID: "2281",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.CreateMessages(context.Background(), []model.Message{msg}, nil))
}

func eventMessage(t *testing.T, deliveryID string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(model.DeliveryEvent{
		DeliveryID: deliveryID,
		MessageID:  deliveryID + "-m",
		Type:       model.TypeSMS,
	})
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

type failingSource struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSource) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return kafka.Message{}, assert.AnError
}

func (f *failingSource) Commit(ctx context.Context, m kafka.Message) error { return nil }

func (f *failingSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunBacksOffOnFetchError(t *testing.T) {
	store := deliverytest.NewStore()
	src := &failingSource{}
	w := newWorker(store, nil)
	w.Consumer = src

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))

	// one failed fetch, then the backoff absorbs the rest of the window
	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 0, store.LiveCount())
}

func TestProcessOneDeliversAndCommits(t *testing.T) {
	store := deliverytest.NewStore()
	src := &committedSource{}
	w := newWorker(store, src)

	seedMessage(t, store, "d-1")
	w.processOne(context.Background(), eventMessage(t, "d-1"))

	assert.Len(t, src.committed, 1)
	h, err := store.HistoryByDeliveryID(context.Background(), "d-1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.StatusSent, h.Status)
}

func TestProcessOnePoisonEventIsCommitted(t *testing.T) {
	store := deliverytest.NewStore()
	src := &committedSource{}
	w := newWorker(store, src)

	w.processOne(context.Background(), kafka.Message{Value: []byte("not json")})
	w.processOne(context.Background(), kafka.Message{Value: []byte(`{}`)})

	assert.Len(t, src.committed, 2)
}

func TestProcessOneDuplicateEventIsCommitted(t *testing.T) {
	store := deliverytest.NewStore()
	src := &committedSource{}
	w := newWorker(store, src)

	// no message row: the delivery was already resolved
	w.processOne(context.Background(), eventMessage(t, "d-gone"))

	assert.Len(t, src.committed, 1)
	h, err := store.HistoryByDeliveryID(context.Background(), "d-gone")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestProcessOneUnknownChannelLeftUncommitted(t *testing.T) {
	store := deliverytest.NewStore()
	src := &committedSource{}
	w := newWorker(store, src)

	seedMessage(t, store, "d-2")
	// no slack processor is wired in this worker
	store.SetType("d-2", model.TypeSlack)

	w.processOne(context.Background(), eventMessage(t, "d-2"))

	// event stays uncommitted so the broker redelivers it
	assert.Empty(t, src.committed)
	m, err := store.MessageByDeliveryID(context.Background(), "d-2")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.StatusPending, m.Status)
}
