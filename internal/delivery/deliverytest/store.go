// Package deliverytest provides an in-memory message store for tests.
package deliverytest

import (
	"context"
	"sort"
	"sync"

	"github.com/citymesh/message-gateway/internal/model"
)

// Store keeps messages, history and outbox events in memory with the same
// live-record semantics as the SQL store: at most one live message row per
// delivery id, resolve deletes the row and writes history, resolving an
// already resolved delivery is a no-op.
type Store struct {
	mu       sync.Mutex
	messages map[string]*model.Message
	history  map[string]model.History
	events   []model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		messages: make(map[string]*model.Message),
		history:  make(map[string]model.History),
	}
}

func (s *Store) CreateMessages(ctx context.Context, msgs []model.Message, events []model.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range msgs {
		m := msgs[i]
		s.messages[m.DeliveryID] = &m
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *Store) Resolve(ctx context.Context, h model.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[h.DeliveryID]; !ok {
		return nil
	}
	delete(s.messages, h.DeliveryID)
	s.history[h.DeliveryID] = h
	return nil
}

func (s *Store) Retarget(ctx context.Context, deliveryID string, t model.MessageType, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[deliveryID]; ok {
		m.Type = t
		m.Content = content
	}
	return nil
}

func (s *Store) IncrementAttempt(ctx context.Context, deliveryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[deliveryID]
	if !ok {
		return 0, nil
	}
	m.AttemptCount++
	return m.AttemptCount, nil
}

func (s *Store) MessageByDeliveryID(ctx context.Context, deliveryID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[deliveryID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) MessagesByMessageID(ctx context.Context, messageID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.MessageID == messageID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *Store) MessagesByBatchID(ctx context.Context, batchID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.BatchID != nil && *m.BatchID == batchID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchSeq < out[j].BatchSeq })
	return out, nil
}

func (s *Store) HistoryByDeliveryID(ctx context.Context, deliveryID string) (*model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.history[deliveryID]; ok {
		return &h, nil
	}
	return nil, nil
}

func (s *Store) HistoryByMessageID(ctx context.Context, messageID string) ([]model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.History
	for _, h := range s.history {
		if h.MessageID == messageID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) HistoryByBatchID(ctx context.Context, batchID string) ([]model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.History
	for _, h := range s.history {
		if h.BatchID != nil && *h.BatchID == batchID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchSeq < out[j].BatchSeq })
	return out, nil
}

// Events returns a copy of the recorded outbox events.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.events...)
}

// LiveCount returns the number of unresolved message rows.
func (s *Store) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ResolvedCount returns the number of history rows.
func (s *Store) ResolvedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// SetType rewrites the channel type of a live message row.
func (s *Store) SetType(deliveryID string, t model.MessageType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[deliveryID]; ok {
		m.Type = t
	}
}
