// Package provider implements the Connector port for the three external
// metric sources. All three connectors share one bearer-auth HTTP client;
// each is a stateless mapping from provider wire shapes to daily metric rows.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// requestTimeout bounds one provider call. A timed-out call fails that
// connection only, same as a non-2xx response.
const requestTimeout = 30 * time.Second

// maxErrorBody caps how much of a provider error body is captured into APIError.
const maxErrorBody = 4 << 10

// APIError is returned when a provider data endpoint responds non-2xx. It is
// never collapsed into an empty row set: an empty result always means the
// provider returned zero rows.
type APIError struct {
	Provider   model.Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Client is the HTTP client shared by the three connectors:
//  1. httpcache (ETag-based conditional request caching for GET endpoints)
//  2. a token-bucket rate limiter shared across connectors, so a large
//     backfill cannot fan out into the providers' rate limits
//  3. a per-request timeout
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates the production client: cached transport, 5 requests/sec
// sustained with a burst of 10.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   requestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and no
// rate limiting. This constructor is intended for testing, allowing injection
// of an httptest server's client.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// getJSON performs a rate-limited authenticated GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, p model.Provider, url, accessToken string, out any) error {
	return c.doJSON(ctx, p, http.MethodGet, url, accessToken, nil, out)
}

// postJSON performs a rate-limited authenticated POST with a JSON body and
// decodes the response into out.
func (c *Client) postJSON(ctx context.Context, p model.Provider, url, accessToken string, reqBody, out any) error {
	return c.doJSON(ctx, p, http.MethodPost, url, accessToken, reqBody, out)
}

func (c *Client) doJSON(ctx context.Context, p model.Provider, method, url, accessToken string, reqBody, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Provider: p, StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", p, err)
	}
	return nil
}
