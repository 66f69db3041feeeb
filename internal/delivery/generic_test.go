package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citymesh/message-gateway/internal/adapter"
	"github.com/citymesh/message-gateway/internal/delivery/deliverytest"
	"github.com/citymesh/message-gateway/internal/model"
)

const partyID = "0d64beb2-3a27-4d65-ae8e-0b2fbe6a2181"

func genericRequest(partyID string) Request {
	return Request{
		Type:  model.TypeMessage,
		Party: partyID,
		Content: model.MessageContent{
			PartyID: partyID,
			Subject: "water outage",
			Body:    "the water is off on tuesday",
		},
	}
}

func TestGenericNoContactSettings(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{} // resolver returns nothing
	router, adapters := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	res, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.NoError(t, err)

	assert.Equal(t, model.StatusNoContactSettingsFound, res.Status)
	assert.Equal(t, 1, contacts.calls)
	assert.Equal(t, 0, adapters[model.TypeSMS].callCount())
	assert.Equal(t, 0, adapters[model.TypeEmail].callCount())

	h, err := store.HistoryByDeliveryID(context.Background(), res.DeliveryID)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.StatusNoContactSettingsFound, h.Status)
	assert.Equal(t, 0, h.AttemptCount)
}

func TestGenericAllChannelsDisabled(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{channels: []model.ContactChannel{
		{Method: model.ContactMethodSMS, Destination: "+46701234567", Enabled: false},
		{Method: model.ContactMethodEmail, Destination: "a@b.se", Enabled: false},
	}}
	router, adapters := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	res, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.NoError(t, err)

	assert.Equal(t, model.StatusNoContactWanted, res.Status)
	assert.Equal(t, 0, adapters[model.TypeSMS].callCount())
	assert.Equal(t, 0, adapters[model.TypeEmail].callCount())
}

func TestGenericFallsBackToEmail(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{channels: []model.ContactChannel{
		{Method: model.ContactMethodSMS, Destination: "+46701234567", Enabled: false},
		{Method: model.ContactMethodEmail, Destination: "resident@example.se", Enabled: true},
	}}
	router, adapters := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	res, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, res.Status)
	assert.Equal(t, 0, adapters[model.TypeSMS].callCount())
	assert.Equal(t, 1, adapters[model.TypeEmail].callCount())

	// the result reports the requested type, not the effective channel
	assert.Equal(t, model.TypeMessage, res.MessageType)

	h, err := store.HistoryByDeliveryID(context.Background(), res.DeliveryID)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.TypeEmail, h.Type)
	assert.Equal(t, model.TypeMessage, h.OriginalType)

	// sender fields filled from policy defaults
	var c model.EmailContent
	require.NoError(t, model.DecodeContent(adapters[model.TypeEmail].lastContent(), &c))
	assert.Equal(t, "resident@example.se", c.Recipient)
	assert.Equal(t, "Municipality", c.SenderName)
	assert.Equal(t, "noreply@municipality.se", c.SenderAddress)
	assert.Equal(t, "water outage", c.Subject)
}

func TestGenericLowercaseContactMethod(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{channels: []model.ContactChannel{
		{Method: "email", Destination: "resident@example.se", Enabled: true},
	}}
	router, adapters := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	res, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.NoError(t, err)

	// resolver casing must not change the effective channel
	assert.Equal(t, model.StatusSent, res.Status)
	assert.Equal(t, 0, adapters[model.TypeSMS].callCount())
	assert.Equal(t, 1, adapters[model.TypeEmail].callCount())

	h, err := store.HistoryByDeliveryID(context.Background(), res.DeliveryID)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.TypeEmail, h.Type)

	var c model.EmailContent
	require.NoError(t, model.DecodeContent(adapters[model.TypeEmail].lastContent(), &c))
	assert.Equal(t, "resident@example.se", c.Recipient)
}

func TestGenericPrefersFirstDispatchableChannel(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{channels: []model.ContactChannel{
		{Method: model.ContactMethodSMS, Destination: "0701234567", Enabled: true},
		{Method: model.ContactMethodEmail, Destination: "resident@example.se", Enabled: true},
	}}
	router, adapters := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	res, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, res.Status)
	assert.Equal(t, 1, adapters[model.TypeSMS].callCount())
	assert.Equal(t, 0, adapters[model.TypeEmail].callCount())

	// destination normalized and sender applied from policy
	var c model.SMSContent
	require.NoError(t, model.DecodeContent(adapters[model.TypeSMS].lastContent(), &c))
	assert.Equal(t, "+46701234567", c.Recipient)
	assert.Equal(t, "Kommun", c.Sender)
	assert.Equal(t, "the water is off on tuesday", c.Body)
}

func TestGenericResolverErrorLeavesPending(t *testing.T) {
	store := deliverytest.NewStore()
	contacts := &fakeContacts{err: assert.AnError}
	router, _ := newTestRouter(store, contacts, adapter.OutcomeOK, model.TypeSMS, model.TypeEmail)

	_, err := router.Send(context.Background(), genericRequest(partyID), testOptions(false))
	require.Error(t, err)

	// the message stays pending for event redelivery
	assert.Equal(t, 1, store.LiveCount())
	assert.Equal(t, 0, store.ResolvedCount())
}
