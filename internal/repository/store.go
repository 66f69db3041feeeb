package repository

import (
	"context"
	"fmt"

	"github.com/citymesh/message-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// DeliveryStore is the message/history store contract used by the delivery
// pipeline. It fronts the messages, history and outbox repositories and owns
// the persist-before-publish transaction: message rows and their delivery
// events are committed together, the relay publishes only committed events.
type DeliveryStore struct {
	db      *sqlx.DB
	msgs    MessagesRepository
	history HistoryRepository
	outbox  OutboxRepository
}

func NewDeliveryStore(db *sqlx.DB, msgs MessagesRepository, history HistoryRepository, outbox OutboxRepository) *DeliveryStore {
	return &DeliveryStore{db: db, msgs: msgs, history: history, outbox: outbox}
}

// CreateMessages persists message rows and their outbox events in a single
// transaction. events may be empty (synchronous delivery).
func (s *DeliveryStore) CreateMessages(ctx context.Context, msgs []model.Message, events []model.OutboxEvent) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.msgs.Insert(ctx, tx, msgs); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}
	for _, ev := range events {
		if err := s.outbox.Insert(ctx, tx, ev.Aggregate, ev.AggregateID, ev.Topic, ev.Payload); err != nil {
			return fmt.Errorf("insert outbox: %w", err)
		}
	}

	return tx.Commit()
}

func (s *DeliveryStore) Resolve(ctx context.Context, h model.History) error {
	return s.msgs.Resolve(ctx, h)
}

func (s *DeliveryStore) IncrementAttempt(ctx context.Context, deliveryID string) (int, error) {
	return s.msgs.IncrementAttempt(ctx, deliveryID)
}

func (s *DeliveryStore) Retarget(ctx context.Context, deliveryID string, t model.MessageType, content []byte) error {
	return s.msgs.Retarget(ctx, deliveryID, t, content)
}

func (s *DeliveryStore) MessageByDeliveryID(ctx context.Context, deliveryID string) (*model.Message, error) {
	return s.msgs.GetByDeliveryID(ctx, deliveryID)
}

func (s *DeliveryStore) MessagesByMessageID(ctx context.Context, messageID string) ([]model.Message, error) {
	return s.msgs.ListByMessageID(ctx, messageID)
}

func (s *DeliveryStore) MessagesByBatchID(ctx context.Context, batchID string) ([]model.Message, error) {
	return s.msgs.ListByBatchID(ctx, batchID)
}

func (s *DeliveryStore) HistoryByDeliveryID(ctx context.Context, deliveryID string) (*model.History, error) {
	return s.history.GetByDeliveryID(ctx, deliveryID)
}

func (s *DeliveryStore) HistoryByMessageID(ctx context.Context, messageID string) ([]model.History, error) {
	return s.history.ListByMessageID(ctx, messageID)
}

func (s *DeliveryStore) HistoryByBatchID(ctx context.Context, batchID string) ([]model.History, error) {
	return s.history.ListByBatchID(ctx, batchID)
}
