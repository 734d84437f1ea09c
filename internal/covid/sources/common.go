package sources

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ansel1/merry"
	"github.com/sony/gobreaker"

	"github.com/i474232898/covid-dashboard/internal/covid"
	"github.com/i474232898/covid-dashboard/internal/httpcache"
)

// HTTPClientConfig bundles the HTTP client and its response cache.
type HTTPClientConfig struct {
	Client *http.Client
	// Cache is consulted before and filled after every GET. Nil disables it.
	Cache *httpcache.Cache
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// getBody performs one GET of rawURL with params and returns the body.
// There are no retries; an open circuit fails fast. Transport errors and
// non-2xx statuses are ErrUpstreamUnavailable.
func getBody(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	rawURL string,
	params url.Values,
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, covid.ErrUpstreamUnavailable.Here().Append("http client not configured")
	}

	key := httpcache.NewKey(http.MethodGet, rawURL, params)
	if cfg.Cache != nil {
		if body, ok := cfg.Cache.Get(key); ok {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key.URL, nil)
	if err != nil {
		return nil, covid.ErrUpstreamUnavailable.Here().WithCause(err).Appendf("GET %s", key.URL)
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := cfg.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, merry.Errorf("unexpected status code %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, covid.ErrUpstreamUnavailable.Here().WithCause(err).Appendf("GET %s", key.URL)
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, covid.ErrUpstreamUnavailable.Here().Append("unexpected result type from circuit breaker")
	}
	if cfg.Cache != nil {
		cfg.Cache.Set(key, body)
	}
	return body, nil
}
