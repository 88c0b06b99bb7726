// Package scan collects recent public posts from confirmed identity profiles.
package scan

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/resilience"
)

// RawPost is one record as returned by a network, before window filtering,
// deduplication and sanitising.
type RawPost struct {
	ExternalID string
	PostedAt   time.Time
	Text       string
	Link       string
	Language   string
	Metrics    model.Metrics
}

// Caller gates one outbound call to a network: it waits for a rate-limit
// token, applies the network's circuit breaker and retries transient errors.
type Caller func(ctx context.Context, op string, fn func(ctx context.Context) error) error

// Fetcher is a network-specific collection strategy.
type Fetcher interface {
	Network() model.Network
	// Fetch returns posts published after since, at most limit of them when
	// the network supports server-side limits. Every outbound request must be
	// issued through call.
	Fetch(ctx context.Context, call Caller, profile model.IdentityProfile, since time.Time, limit int) ([]RawPost, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// getJSON performs a GET and returns the body of a 2xx response. Other
// statuses become resilience.StatusError values.
func getJSON(ctx context.Context, hc *http.Client, service, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", service)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: request", service)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: read body", service)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.StatusError(service, resp.StatusCode, body)
	}
	return body, nil
}

func intPtr(v int) *int { return &v }
