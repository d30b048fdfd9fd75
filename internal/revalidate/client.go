// Package revalidate notifies the site frontend that cached pages must
// be regenerated after a content change. Delivery is best-effort: a
// failed call is logged and never fails the mutation that triggered it.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/atelier-digital/atelier-backend/internal/logging"
)

const requestTimeout = 10 * time.Second

type Client struct {
	baseURL string
	secret  string
	client  *http.Client
	limiter *rate.Limiter
}

// New returns a client throttled to rps outbound calls per second. An
// empty baseURL yields a no-op client.
func New(baseURL, secret string, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type revalidateRequest struct {
	Paths []string `json:"paths"`
}

// Revalidate asks the frontend to regenerate the given paths.
func (c *Client) Revalidate(ctx context.Context, paths ...string) {
	if c == nil || c.baseURL == "" || len(paths) == 0 {
		return
	}

	logger := logging.NewLogger(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		logger.LogWarnf("revalidate", "throttle wait aborted: %v", err)
		return
	}

	body, err := json.Marshal(revalidateRequest{Paths: paths})
	if err != nil {
		logger.LogError("revalidate", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/revalidate", bytes.NewReader(body))
	if err != nil {
		logger.LogError("revalidate", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.LogWarnf("revalidate", "request failed: %v", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		logger.LogWarnf("revalidate", "frontend returned status %d for paths %v", resp.StatusCode, paths)
	}
}
