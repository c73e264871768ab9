package client

import (
	"context"
	"net/http"
	"time"
)

// DefaultProbeInterval is how often connectivity is checked.
const DefaultProbeInterval = 30 * time.Second

// Probe reports connectivity by polling the server's ping endpoint.
type Probe struct {
	url      string
	interval time.Duration
	http     *http.Client
}

// NewProbe creates a probe for pingURL. A non-positive interval uses the default.
func NewProbe(pingURL string, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Probe{url: pingURL, interval: interval, http: &http.Client{Timeout: 5 * time.Second}}
}

// Check performs one ping. Any 2xx answer counts as online.
func (p *Probe) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Run checks connectivity every interval and sends the new state on out each
// time it differs from last. It returns when ctx is done.
func (p *Probe) Run(ctx context.Context, last bool, out chan<- bool) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			online := p.Check(ctx)
			if online == last {
				continue
			}
			last = online
			select {
			case out <- online:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
