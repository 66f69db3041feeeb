package model

// DeliveryResult is the response projection for one delivery. Built on demand
// from message/history state, never persisted.
type DeliveryResult struct {
	MessageID      string        `json:"message_id"`
	DeliveryID     string        `json:"delivery_id"`
	MessageType    MessageType   `json:"message_type"`
	Status         MessageStatus `json:"status"`
	MunicipalityID string        `json:"municipality_id"`
}

// BatchResult groups the delivery results spawned from one multi-recipient
// request, in the order the recipients were given.
type BatchResult struct {
	BatchID        string           `json:"batch_id"`
	MunicipalityID string           `json:"municipality_id"`
	Deliveries     []DeliveryResult `json:"deliveries"`
}

func (m Message) Result() DeliveryResult {
	return DeliveryResult{
		MessageID:      m.MessageID,
		DeliveryID:     m.DeliveryID,
		MessageType:    m.OriginalType,
		Status:         m.Status,
		MunicipalityID: m.MunicipalityID,
	}
}

func (h History) Result() DeliveryResult {
	return DeliveryResult{
		MessageID:      h.MessageID,
		DeliveryID:     h.DeliveryID,
		MessageType:    h.OriginalType,
		Status:         h.Status,
		MunicipalityID: h.MunicipalityID,
	}
}
