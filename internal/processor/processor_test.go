package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/adapter"
	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
)

// scriptedAdapter replays a fixed outcome sequence; the last outcome repeats.
type scriptedAdapter struct {
	mu       sync.Mutex
	channel  model.MessageType
	outcomes []adapter.Outcome
	calls    int
}

func (a *scriptedAdapter) Channel() model.MessageType { return a.channel }

func (a *scriptedAdapter) Send(ctx context.Context, content []byte) (adapter.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.calls
	a.calls++
	if i >= len(a.outcomes) {
		i = len(a.outcomes) - 1
	}
	return a.outcomes[i], nil
}

func (a *scriptedAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// memStore keeps messages and history in memory with the same live-record
// semantics as the SQL store.
type memStore struct {
	mu       sync.Mutex
	messages map[string]*model.Message
	history  map[string][]model.History
}

func newMemStore(msgs ...model.Message) *memStore {
	s := &memStore{
		messages: make(map[string]*model.Message),
		history:  make(map[string][]model.History),
	}
	for i := range msgs {
		m := msgs[i]
		s.messages[m.DeliveryID] = &m
	}
	return s
}

func (s *memStore) IncrementAttempt(ctx context.Context, deliveryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[deliveryID]
	if !ok {
		return 0, nil
	}
	m.AttemptCount++
	return m.AttemptCount, nil
}

func (s *memStore) Resolve(ctx context.Context, h model.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[h.DeliveryID]; !ok {
		return nil
	}
	delete(s.messages, h.DeliveryID)
	s.history[h.DeliveryID] = append(s.history[h.DeliveryID], h)
	return nil
}

func (s *memStore) historyOf(deliveryID string) []model.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[deliveryID]
}

func (s *memStore) messageExists(deliveryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.messages[deliveryID]
	return ok
}

func testMessage(t model.MessageType) model.Message {
	return model.Message{
		MessageID:      "9c5b3c0a-0000-4000-8000-000000000001",
		DeliveryID:     "9c5b3c0a-0000-4000-8000-000000000002",
		Type:           t,
		OriginalType:   t,
		Status:         model.StatusPending,
		Content:        []byte(`{}`),
		MunicipalityID: "2281",
	}
}

func fastRetry(maxAttempts int) config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
	}
}

func TestDeliverSuccessFirstAttempt(t *testing.T) {
	msg := testMessage(model.TypeSMS)
	store := newMemStore(msg)
	ad := &scriptedAdapter{channel: model.TypeSMS, outcomes: []adapter.Outcome{adapter.OutcomeOK}}
	p := New(ad, store, fastRetry(3), zap.NewNop())

	status, err := p.Deliver(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
	assert.Equal(t, 1, ad.callCount())

	assert.False(t, store.messageExists(msg.DeliveryID))
	hist := store.historyOf(msg.DeliveryID)
	require.Len(t, hist, 1)
	assert.Equal(t, model.StatusSent, hist[0].Status)
	assert.Equal(t, model.TypeSMS, hist[0].Type)
	assert.Equal(t, 1, hist[0].AttemptCount)
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	msg := testMessage(model.TypeEmail)
	store := newMemStore(msg)
	ad := &scriptedAdapter{channel: model.TypeEmail, outcomes: []adapter.Outcome{
		adapter.OutcomeRetryable, adapter.OutcomeRetryable, adapter.OutcomeOK,
	}}
	p := New(ad, store, fastRetry(3), zap.NewNop())

	status, err := p.Deliver(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
	assert.Equal(t, 3, ad.callCount())

	hist := store.historyOf(msg.DeliveryID)
	require.Len(t, hist, 1)
	assert.Equal(t, 3, hist[0].AttemptCount)
}

func TestDeliverExhaustsRetryBudget(t *testing.T) {
	msg := testMessage(model.TypeSMS)
	store := newMemStore(msg)
	ad := &scriptedAdapter{channel: model.TypeSMS, outcomes: []adapter.Outcome{adapter.OutcomeRetryable}}
	retry := fastRetry(3)
	p := New(ad, store, retry, zap.NewNop())

	start := time.Now()
	status, err := p.Deliver(context.Background(), msg)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
	// exactly maxAttempts attempts, then terminal
	assert.Equal(t, 3, ad.callCount())
	// two backoff waits: initial + doubled
	minElapsed := retry.InitialDelay + 2*retry.InitialDelay
	assert.GreaterOrEqual(t, elapsed, minElapsed)

	hist := store.historyOf(msg.DeliveryID)
	require.Len(t, hist, 1)
	assert.Equal(t, model.StatusFailed, hist[0].Status)
	assert.Equal(t, 3, hist[0].AttemptCount)
}

func TestDeliverPermanentFailureIsNotRetried(t *testing.T) {
	msg := testMessage(model.TypeEmail)
	store := newMemStore(msg)
	ad := &scriptedAdapter{channel: model.TypeEmail, outcomes: []adapter.Outcome{adapter.OutcomePermanent}}
	p := New(ad, store, fastRetry(5), zap.NewNop())

	status, err := p.Deliver(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotSent, status)
	assert.Equal(t, 1, ad.callCount())
}

func TestDeliverDuplicateEventIsNoOp(t *testing.T) {
	msg := testMessage(model.TypeSMS)
	store := newMemStore() // message already resolved and gone
	ad := &scriptedAdapter{channel: model.TypeSMS, outcomes: []adapter.Outcome{adapter.OutcomeOK}}
	p := New(ad, store, fastRetry(3), zap.NewNop())

	status, err := p.Deliver(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, status)
	assert.Equal(t, 0, ad.callCount())
	assert.Empty(t, store.historyOf(msg.DeliveryID))
}

func TestResolveIdempotent(t *testing.T) {
	msg := testMessage(model.TypeSMS)
	store := newMemStore(msg)

	require.NoError(t, store.Resolve(context.Background(), msg.Resolved(model.StatusSent, time.Now())))
	require.NoError(t, store.Resolve(context.Background(), msg.Resolved(model.StatusSent, time.Now())))

	assert.Len(t, store.historyOf(msg.DeliveryID), 1)
}
