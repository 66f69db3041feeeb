// Package stats derives read-only reporting figures from history rows.
// It never writes and cannot affect delivery outcomes.
package stats

import (
	"context"

	"github.com/citymesh/message-gateway/internal/model"
)

// HistoryReader is the slice of the store the reporting side needs.
type HistoryReader interface {
	HistoryByBatchID(ctx context.Context, batchID string) ([]model.History, error)
}

// BatchStatistics summarizes one batch's resolved deliveries.
type BatchStatistics struct {
	BatchID      string `json:"batch_id"`
	Recipients   int    `json:"recipients"`
	Sent         int    `json:"sent"`
	Unsuccessful int    `json:"unsuccessful"`
	Subject      string `json:"subject,omitempty"`
	Attachments  int    `json:"attachments"`
}

type Service struct {
	history HistoryReader
}

func NewService(history HistoryReader) *Service {
	return &Service{history: history}
}

// ForBatch walks the batch's history rows. Recipient count is distinct
// message ids; subject and attachment count come from the first row whose
// content type carries them.
func (s *Service) ForBatch(ctx context.Context, batchID string) (BatchStatistics, error) {
	rows, err := s.history.HistoryByBatchID(ctx, batchID)
	if err != nil {
		return BatchStatistics{}, err
	}

	out := BatchStatistics{BatchID: batchID}
	seen := make(map[string]struct{}, len(rows))

	for _, h := range rows {
		if _, ok := seen[h.MessageID]; !ok {
			seen[h.MessageID] = struct{}{}
			out.Recipients++
		}
		if h.Status == model.StatusSent {
			out.Sent++
		} else {
			out.Unsuccessful++
		}
		if out.Subject == "" {
			subject, attachments := Extract(h.Type, h.Content)
			if subject != "" || attachments > 0 {
				out.Subject = subject
				out.Attachments = attachments
			}
		}
	}

	return out, nil
}

// Extract pulls the subject line and attachment count out of a stored content
// payload, strictly by message type. A type without structured content, or a
// payload that does not parse as that type, yields an empty result.
func Extract(t model.MessageType, content []byte) (subject string, attachments int) {
	switch t {
	case model.TypeEmail:
		var c model.EmailContent
		if model.DecodeContent(content, &c) == nil {
			return c.Subject, len(c.Attachments)
		}
	case model.TypeWebMessage:
		var c model.WebMessageContent
		if model.DecodeContent(content, &c) == nil {
			return c.Subject, len(c.Attachments)
		}
	case model.TypeDigitalMail:
		var c model.DigitalMailContent
		if model.DecodeContent(content, &c) == nil {
			return c.Subject, len(c.Attachments)
		}
	case model.TypeDigitalInvoice:
		var c model.DigitalInvoiceContent
		if model.DecodeContent(content, &c) == nil {
			return c.Subject, len(c.Files)
		}
	case model.TypeLetter:
		var c model.LetterContent
		if model.DecodeContent(content, &c) == nil {
			return c.Subject, len(c.Attachments)
		}
	}
	return "", 0
}
