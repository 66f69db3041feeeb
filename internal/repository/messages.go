package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/citymesh/message-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// MessagesRepository defines persistence for pending messages and their
// terminal resolution into history.
type MessagesRepository interface {
	// Insert writes message rows. If tx is nil an internal transaction is used.
	Insert(ctx context.Context, tx *sqlx.Tx, msgs []model.Message) error
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.Message, error)
	ListByMessageID(ctx context.Context, messageID string) ([]model.Message, error)
	ListByBatchID(ctx context.Context, batchID string) ([]model.Message, error)
	// IncrementAttempt bumps attempt_count and returns the new value.
	IncrementAttempt(ctx context.Context, deliveryID string) (int, error)
	// Retarget rewrites a message's effective channel and content. Used when a
	// generic message is resolved to a concrete channel; original_type is kept.
	Retarget(ctx context.Context, deliveryID string, t model.MessageType, content []byte) error
	// Resolve deletes the message row and appends the history row in one
	// transaction. If the message row is already gone (duplicate event) the
	// history insert is skipped and Resolve is a no-op.
	Resolve(ctx context.Context, h model.History) error
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

func (r *MessagesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

const insertMessageQ = `
	INSERT INTO messages
	    (message_id, delivery_id, batch_id, batch_seq, type, original_type, status,
	     content, municipality_id, origin, issuer, attempt_count, created_at)
	VALUES
	    (?, ?, ?, ?, ?, ?, 'PENDING', ?, ?, ?, ?, 0, NOW())
`

func (r *MessagesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		for _, m := range msgs {
			_, err := tx.ExecContext(ctx, insertMessageQ,
				m.MessageID, m.DeliveryID, m.BatchID, m.BatchSeq,
				m.Type.String(), m.OriginalType.String(),
				m.Content, m.MunicipalityID, m.Origin, m.Issuer,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const selectMessageCols = `
	SELECT message_id, delivery_id, batch_id, batch_seq, type, original_type, status,
	       content, municipality_id, origin, issuer, attempt_count, created_at
	  FROM messages
`

func (r *MessagesRepositoryImpl) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, selectMessageCols+` WHERE delivery_id = ? LIMIT 1`, deliveryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) ListByMessageID(ctx context.Context, messageID string) ([]model.Message, error) {
	var ms []model.Message
	err := r.db.SelectContext(ctx, &ms, selectMessageCols+` WHERE message_id = ? ORDER BY batch_seq`, messageID)
	return ms, err
}

func (r *MessagesRepositoryImpl) ListByBatchID(ctx context.Context, batchID string) ([]model.Message, error) {
	var ms []model.Message
	err := r.db.SelectContext(ctx, &ms, selectMessageCols+` WHERE batch_id = ? ORDER BY batch_seq`, batchID)
	return ms, err
}

func (r *MessagesRepositoryImpl) IncrementAttempt(ctx context.Context, deliveryID string) (int, error) {
	var n int
	err := r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE messages SET attempt_count = attempt_count + 1 WHERE delivery_id = ?`, deliveryID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// row gone: delivery already resolved
			return nil
		}
		return tx.GetContext(ctx, &n,
			`SELECT attempt_count FROM messages WHERE delivery_id = ?`, deliveryID)
	})
	return n, err
}

func (r *MessagesRepositoryImpl) Retarget(ctx context.Context, deliveryID string, t model.MessageType, content []byte) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET type = ?, content = ? WHERE delivery_id = ?`,
		t.String(), content, deliveryID)
	return err
}

const insertHistoryQ = `
	INSERT INTO history
	    (message_id, delivery_id, batch_id, batch_seq, type, original_type, status,
	     content, municipality_id, origin, issuer, attempt_count, created_at)
	VALUES
	    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (r *MessagesRepositoryImpl) Resolve(ctx context.Context, h model.History) error {
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE delivery_id = ?`, h.DeliveryID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// already resolved by an earlier attempt
			return nil
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx, insertHistoryQ,
			h.MessageID, h.DeliveryID, h.BatchID, h.BatchSeq,
			h.Type.String(), h.OriginalType.String(), h.Status.String(),
			h.Content, h.MunicipalityID, h.Origin, h.Issuer,
			h.AttemptCount, h.CreatedAt,
		)
		return err
	})
}
