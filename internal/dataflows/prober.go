package dataflows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Prober checks that the network is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber requests a well-known URL and expects 200 OK.
type HTTPProber struct {
	client *resty.Client
	url    string
}

func NewHTTPProber(cfg *Config) *HTTPProber {
	return &HTTPProber{
		client: newRestyClient(cfg),
		url:    cfg.ProbeURL,
	}
}

// Probe returns ErrOffline for a non-200 answer and the transport error when
// the request itself fails.
func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrOffline, p.url, resp.StatusCode())
	}
	return nil
}

func newRestyClient(cfg *Config) *resty.Client {
	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent)
	if cfg.HTTPTimeout > 0 {
		client.SetTimeout(cfg.HTTPTimeout)
	}
	return client
}
