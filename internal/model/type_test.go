package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in   string
		want MessageType
		ok   bool
	}{
		{"sms", TypeSMS, true},
		{"SMS", TypeSMS, true},
		{" digital_mail ", TypeDigitalMail, true},
		{"message", TypeMessage, true},
		{"pigeon", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseMessageType(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "delivery.sms", TypeSMS.Topic())
	assert.Equal(t, "delivery.digital_invoice", TypeDigitalInvoice.Topic())
	assert.Equal(t, "delivery.message", TypeMessage.Topic())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	for _, s := range []MessageStatus{
		StatusSent, StatusFailed, StatusNotSent,
		StatusNoContactWanted, StatusNoContactSettingsFound,
	} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, MessageStatus("BOGUS").Terminal())
}
