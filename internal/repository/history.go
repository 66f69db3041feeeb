package repository

import (
	"context"
	"database/sql"

	"github.com/citymesh/message-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository is the read side over resolved deliveries. History rows
// are written only through MessagesRepository.Resolve.
type HistoryRepository interface {
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.History, error)
	ListByMessageID(ctx context.Context, messageID string) ([]model.History, error)
	ListByBatchID(ctx context.Context, batchID string) ([]model.History, error)
}

type HistoryRepositoryImpl struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) *HistoryRepositoryImpl {
	return &HistoryRepositoryImpl{db: db}
}

var _ HistoryRepository = (*HistoryRepositoryImpl)(nil)

const selectHistoryCols = `
	SELECT message_id, delivery_id, batch_id, batch_seq, type, original_type, status,
	       content, municipality_id, origin, issuer, attempt_count, created_at
	  FROM history
`

func (r *HistoryRepositoryImpl) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.History, error) {
	var h model.History
	err := r.db.GetContext(ctx, &h, selectHistoryCols+` WHERE delivery_id = ? LIMIT 1`, deliveryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HistoryRepositoryImpl) ListByMessageID(ctx context.Context, messageID string) ([]model.History, error) {
	var hs []model.History
	err := r.db.SelectContext(ctx, &hs, selectHistoryCols+` WHERE message_id = ? ORDER BY batch_seq`, messageID)
	return hs, err
}

func (r *HistoryRepositoryImpl) ListByBatchID(ctx context.Context, batchID string) ([]model.History, error) {
	var hs []model.History
	err := r.db.SelectContext(ctx, &hs, selectHistoryCols+` WHERE batch_id = ? ORDER BY batch_seq`, batchID)
	return hs, err
}
