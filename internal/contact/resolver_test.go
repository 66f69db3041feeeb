package contact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
)

func newResolver(t *testing.T, handler http.HandlerFunc) *HTTPResolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPResolver(config.ContactConfig{BaseURL: srv.URL, TimeoutMs: 1000})
}

func TestResolveReturnsChannels(t *testing.T) {
	var gotParty string
	r := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		gotParty = req.URL.Query().Get("partyId")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"contact_method":"SMS","destination":"+46701234567","enabled":true},
			{"contact_method":"EMAIL","destination":"a@b.se","enabled":false}
		]`))
	})

	channels, err := r.Resolve(context.Background(), "party-1")
	require.NoError(t, err)

	assert.Equal(t, "party-1", gotParty)
	require.Len(t, channels, 2)
	assert.Equal(t, model.ContactMethodSMS, channels[0].Method)
	assert.True(t, channels[0].Enabled)
	assert.Equal(t, model.ContactMethodEmail, channels[1].Method)
	assert.False(t, channels[1].Enabled)
}

func TestResolveNotFoundMeansNoSettings(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	channels, err := r.Resolve(context.Background(), "party-2")
	require.NoError(t, err)
	assert.Nil(t, channels)
}

func TestResolveUpstreamError(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := r.Resolve(context.Background(), "party-3")
	require.Error(t, err)
}

func TestResolveBadPayload(t *testing.T) {
	r := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := r.Resolve(context.Background(), "party-4")
	require.Error(t, err)
}
