package model

import "strings"

type MessageType string

const (
	TypeSMS            MessageType = "SMS"
	TypeEmail          MessageType = "EMAIL"
	TypeDigitalMail    MessageType = "DIGITAL_MAIL"
	TypeWebMessage     MessageType = "WEB_MESSAGE"
	TypeSnailMail      MessageType = "SNAIL_MAIL"
	TypeLetter         MessageType = "LETTER"
	TypeSlack          MessageType = "SLACK"
	TypeDigitalInvoice MessageType = "DIGITAL_INVOICE"
	TypeMessage        MessageType = "MESSAGE" // channel resolved from contact settings
)

func (t MessageType) String() string { return string(t) }

func (t MessageType) Valid() bool {
	switch t {
	case TypeSMS, TypeEmail, TypeDigitalMail, TypeWebMessage, TypeSnailMail,
		TypeLetter, TypeSlack, TypeDigitalInvoice, TypeMessage:
		return true
	}
	return false
}

// ParseMessageType normalizes input to a known channel type.
// Returns (value, true) if valid; otherwise ("", false).
func ParseMessageType(s string) (MessageType, bool) {
	t := MessageType(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// Topic returns the delivery-event topic for the channel.
func (t MessageType) Topic() string {
	return "delivery." + strings.ToLower(string(t))
}
