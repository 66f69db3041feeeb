package model

import "time"

// OutboxEvent is a delivery event persisted in the same transaction as its
// message rows and published to Kafka by the relay worker afterwards.
type OutboxEvent struct {
	ID          int64      `db:"id"`
	Aggregate   string     `db:"aggregate"`    // e.g. "message"
	AggregateID string     `db:"aggregate_id"` // delivery id
	Topic       string     `db:"topic"`
	Payload     []byte     `db:"payload"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
