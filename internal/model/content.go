package model

import (
	"encoding/json"
	"fmt"
)

// Channel content payloads. A message row stores exactly one of these,
// serialized as JSON; the channel adapter receives the raw bytes.

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"` // base64
}

type SMSContent struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient"` // MSISDN
	Body      string `json:"body"`
}

type EmailContent struct {
	SenderName    string       `json:"sender_name,omitempty"`
	SenderAddress string       `json:"sender_address,omitempty"`
	Recipient     string       `json:"recipient"`
	Subject       string       `json:"subject"`
	Body          string       `json:"body"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

type DigitalMailContent struct {
	PartyID     string       `json:"party_id"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	ContentType string       `json:"content_type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type WebMessageContent struct {
	PartyID     string       `json:"party_id"`
	Subject     string       `json:"subject,omitempty"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type SnailMailContent struct {
	PartyID     string       `json:"party_id"`
	Department  string       `json:"department,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type LetterContent struct {
	PartyID     string       `json:"party_id"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	ContentType string       `json:"content_type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type SlackContent struct {
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

type DigitalInvoiceContent struct {
	PartyID   string       `json:"party_id"`
	Subject   string       `json:"subject,omitempty"`
	Reference string       `json:"reference,omitempty"`
	Files     []Attachment `json:"files,omitempty"`
}

// MessageContent is the generic payload whose effective channel is decided
// from the recipient's contact settings at delivery time.
type MessageContent struct {
	PartyID       string `json:"party_id"`
	Subject       string `json:"subject,omitempty"`
	Body          string `json:"body"`
	SenderName    string `json:"sender_name,omitempty"`
	SenderAddress string `json:"sender_address,omitempty"`
}

// EncodeContent serializes a channel content value for the message row.
func EncodeContent(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return b, nil
}

// DecodeContent deserializes a message row's content into dst.
func DecodeContent(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	return nil
}
