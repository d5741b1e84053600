// Package probe performs liveness probes against the service group's health
// endpoint.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single probe request.
const DefaultTimeout = 5 * time.Second

// HTTPProber implements health.Prober with a GET against a liveness URL.
// Any 2xx status passes; everything else, including transport errors and
// timeouts, fails that attempt.
type HTTPProber struct {
	client *resty.Client
	url    string
}

// NewHTTPProber creates a prober for the given URL. timeout bounds each
// request; zero means DefaultTimeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		// The verifier owns retries; a probe is a single shot.
		SetRetryCount(0)

	return &HTTPProber{client: client, url: url}
}

// Probe performs one GET against the liveness endpoint.
func (p *HTTPProber) Probe(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("probe %s: unexpected status %d", p.url, resp.StatusCode())
	}
	return nil
}

// URL returns the probed endpoint.
func (p *HTTPProber) URL() string {
	return p.url
}
