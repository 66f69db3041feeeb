package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
)

// HTTPAdapter posts message content to a channel sender over HTTP.
// Outcome mapping: 2xx ok, 4xx permanent (except 429), everything else
// retryable. Transport errors are retryable. A rejected payload does not
// trip the breaker; the sender answered, it just said no.
type HTTPAdapter struct {
	channel model.MessageType
	url     string
	client  *http.Client
	br      *Breaker
}

func NewHTTPAdapter(channel model.MessageType, cfg config.ChannelConfig) *HTTPAdapter {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPAdapter{
		channel: channel,
		url:     cfg.BaseURL + cfg.Path,
		client:  &http.Client{Timeout: timeout},
		br:      NewBreaker(cfg.Breaker.FailThreshold, time.Duration(cfg.Breaker.OpenForMs)*time.Millisecond),
	}
}

func (a *HTTPAdapter) Channel() model.MessageType { return a.channel }

func (a *HTTPAdapter) Send(ctx context.Context, content []byte) (Outcome, error) {
	if !a.br.Allow() {
		return OutcomeRetryable, fmt.Errorf("channel=%s breaker open", a.channel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(content))
	if err != nil {
		a.br.OnFailure()
		return OutcomeRetryable, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		a.br.OnFailure()
		return OutcomeRetryable, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode/100 == 2:
		a.br.OnSuccess()
		return OutcomeOK, nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode/100 == 5:
		a.br.OnFailure()
		return OutcomeRetryable, fmt.Errorf("channel=%s status=%d", a.channel, res.StatusCode)
	default:
		a.br.OnSuccess()
		return OutcomePermanent, fmt.Errorf("channel=%s status=%d", a.channel, res.StatusCode)
	}
}
