package model

import "time"

type MessageStatus string

const (
	StatusPending                MessageStatus = "PENDING"
	StatusSent                   MessageStatus = "SENT"
	StatusFailed                 MessageStatus = "FAILED"
	StatusNotSent                MessageStatus = "NOT_SENT"
	StatusNoContactWanted        MessageStatus = "NO_CONTACT_WANTED"
	StatusNoContactSettingsFound MessageStatus = "NO_CONTACT_SETTINGS_FOUND"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusNotSent,
		StatusNoContactWanted, StatusNoContactSettingsFound:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal statuses are only
// ever written to history, never back to a message row.
func (s MessageStatus) Terminal() bool {
	return s.Valid() && s != StatusPending
}

// Message is the canonical pending delivery unit persisted in the messages
// table. Exactly one live row exists per delivery id; resolving a delivery
// replaces the row with a history row in the same transaction.
type Message struct {
	MessageID      string        `db:"message_id"`
	DeliveryID     string        `db:"delivery_id"`
	BatchID        *string       `db:"batch_id"` // nullable, set for multi-recipient requests
	BatchSeq       int           `db:"batch_seq"`
	Type           MessageType   `db:"type"`
	OriginalType   MessageType   `db:"original_type"`
	Status         MessageStatus `db:"status"`
	Content        []byte        `db:"content"`
	MunicipalityID string        `db:"municipality_id"`
	Origin         string        `db:"origin"`
	Issuer         string        `db:"issuer"`
	AttemptCount   int           `db:"attempt_count"`
	CreatedAt      time.Time     `db:"created_at"`
}

// History is the immutable terminal record of a resolved delivery.
type History struct {
	MessageID      string        `db:"message_id"`
	DeliveryID     string        `db:"delivery_id"`
	BatchID        *string       `db:"batch_id"`
	BatchSeq       int           `db:"batch_seq"`
	Type           MessageType   `db:"type"`
	OriginalType   MessageType   `db:"original_type"`
	Status         MessageStatus `db:"status"`
	Content        []byte        `db:"content"`
	MunicipalityID string        `db:"municipality_id"`
	Origin         string        `db:"origin"`
	Issuer         string        `db:"issuer"`
	AttemptCount   int           `db:"attempt_count"`
	CreatedAt      time.Time     `db:"created_at"`
}

// Resolved projects the message into its terminal history record.
func (m Message) Resolved(status MessageStatus, at time.Time) History {
	return History{
		MessageID:      m.MessageID,
		DeliveryID:     m.DeliveryID,
		BatchID:        m.BatchID,
		BatchSeq:       m.BatchSeq,
		Type:           m.Type,
		OriginalType:   m.OriginalType,
		Status:         status,
		Content:        m.Content,
		MunicipalityID: m.MunicipalityID,
		Origin:         m.Origin,
		Issuer:         m.Issuer,
		AttemptCount:   m.AttemptCount,
		CreatedAt:      at,
	}
}
