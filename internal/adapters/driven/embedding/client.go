package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client is the HTTP side of an embedding gateway: one base URL, optional
// headers sent with every request, and a shared rate limiter. Every
// transport or status failure wraps domain.ErrEmbeddingUnavailable.
type Client struct {
	name    string
	baseURL string
	headers map[string]string
	http    *http.Client
	limiter *RateLimiter
}

// NewClient returns a client for the provider called name.
func NewClient(name, baseURL string, timeout time.Duration, ratePerSecond float64, headers map[string]string) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		headers: headers,
		http:    &http.Client{Timeout: timeout},
		limiter: NewRateLimiter(ratePerSecond, 1),
	}
}

// Post sends body as JSON to path after waiting on the rate limiter and
// returns the parsed response.
func (c *Client) Post(ctx context.Context, path string, body any) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: marshal request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
}

// Get fetches path. It skips the rate limiter; it is used for pings.
func (c *Client) Get(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, path, http.NoBody)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %s: read response: %w", domain.ErrEmbeddingUnavailable, c.name, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(ParseRetryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(data, "error").String()
		}
		if msg == "" {
			msg = string(data[:min(len(data), maxErrorBody)])
		}
		return gjson.Result{}, fmt.Errorf("%w: %s: status %d: %s", domain.ErrEmbeddingUnavailable, c.name, resp.StatusCode, msg)
	}
	if method == http.MethodGet {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: %s: response is not JSON", domain.ErrEmbeddingUnavailable, c.name)
	}
	return gjson.ParseBytes(data), nil
}

// Close drops idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Vector converts a JSON number array to float32.
func Vector(r gjson.Result) []float32 {
	values := r.Array()
	if len(values) == 0 {
		return nil
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.Float())
	}
	return vec
}

// Limiter exposes the client's rate limiter.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}
