// Package contact resolves a recipient's enabled contact channels from the
// municipal contact-settings service.
package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
)

// Resolver returns a recipient's contact channels ranked by preference.
// An empty list means the recipient has no contact settings at all.
type Resolver interface {
	Resolve(ctx context.Context, partyID string) ([]model.ContactChannel, error)
}

type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(cfg config.ContactConfig) *HTTPResolver {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPResolver{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ Resolver = (*HTTPResolver)(nil)

func (r *HTTPResolver) Resolve(ctx context.Context, partyID string) ([]model.ContactChannel, error) {
	u := r.baseURL + "/settings?partyId=" + url.QueryEscape(partyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact settings: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("contact settings: status=%d", res.StatusCode)
	}

	var channels []model.ContactChannel
	if err := json.NewDecoder(res.Body).Decode(&channels); err != nil {
		return nil, fmt.Errorf("contact settings: %w", err)
	}
	return channels, nil
}
