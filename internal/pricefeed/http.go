package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rangelab/rangesim/internal/logger"
)

const (
	maxRetries    = 2
	baseRetryWait = 500 * time.Millisecond
)

// httpClient is a thin JSON GET client shared by the price sources, with
// optional rate limiting and retry on 429/5xx. Retries stay inside a single
// source; the resolver's fallback chain never retries a source itself.
type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

func newHTTPClient(baseURL string, timeout time.Duration, limiter *rate.Limiter) *httpClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     logger.Component("pricefeed-http"),
	}
}

// getJSON performs a GET against baseURL+path and decodes the JSON body
// into out.
func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if retryable {
			resp.Body.Close()
			if attempt >= maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.log.Warn("retryable status from price source", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}
}

func (c *httpClient) sleep(ctx context.Context, attempt int) {
	wait := baseRetryWait << attempt
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
