package model

import "time"

// APIKey identifies a calling system allowed to submit delivery requests.
type APIKey struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Key          string    `db:"api_key"`
	Status       string    `db:"status"`         // active|suspended
	RateLimitRPS *int      `db:"rate_limit_rps"` // nullable
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
