package repository

import (
	"context"
	"database/sql"

	"github.com/citymesh/message-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

type APIKeysRepository interface {
	GetByKey(ctx context.Context, apiKey string) (*model.APIKey, error)
}

type APIKeysRepositoryImpl struct {
	db *sqlx.DB
}

func NewAPIKeysRepository(db *sqlx.DB) *APIKeysRepositoryImpl {
	return &APIKeysRepositoryImpl{db: db}
}

var _ APIKeysRepository = (*APIKeysRepositoryImpl)(nil)

func (r *APIKeysRepositoryImpl) GetByKey(ctx context.Context, apiKey string) (*model.APIKey, error) {
	var k model.APIKey
	err := r.db.GetContext(ctx, &k, `
		SELECT id, name, api_key, status, rate_limit_rps, created_at, updated_at
		  FROM api_keys
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
