package api_client

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const maxBodySize = 1 << 20

type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client shared by all rate sources. perSecond <= 0
// disables rate limiting.
func NewHTTPClient(timeout time.Duration, perSecond float64, burst int) *HTTPClient {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Get returns the body of a 2xx response. Transport failures, deadlines and
// non-2xx statuses are reported as entities.ErrNetwork.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	const op = "api_client.Get"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: rate limiter: %v", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: create request: %v", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: %v", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: bad status: %s", op, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: read body: %v", op, err)
	}

	return body, nil
}
