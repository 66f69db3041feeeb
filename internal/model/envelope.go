package model

// DeliveryEvent is the payload published to Kafka for one pending delivery.
// The worker re-reads the message row by delivery id, so the event carries
// identity only; a duplicate event for an already resolved delivery is a no-op.
type DeliveryEvent struct {
	DeliveryID string      `json:"delivery_id"`
	MessageID  string      `json:"message_id"`
	Type       MessageType `json:"type"`
}
