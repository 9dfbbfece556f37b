package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/clearpeak-lending/report-cli/internal/resilience"
)

// HTTPOptions configures the HTTP client.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RateLimit throttles all requests; the origination API is a shared
	// tenant and one call per loan adds up fast.
	RateLimit rate.Limit
	Burst     int
}

// HTTPClient is a JSON-over-HTTP client with rate limiting and retry on
// transient failures.
type HTTPClient struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "report-cli/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 10
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, opts.Burst),
	}
}

// PostJSON sends a JSON body and decodes a JSON response into out.
func (c *HTTPClient) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "http: marshal body")
	}
	return c.do(ctx, http.MethodPost, rawURL, headers, "application/json", payload, out)
}

// PostForm sends a urlencoded form and decodes a JSON response into out.
func (c *HTTPClient) PostForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, nil,
		"application/x-www-form-urlencoded", []byte(form.Encode()), out)
}

// GetJSON issues a GET and decodes a JSON response into out.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, headers, "", nil, out)
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, headers map[string]string, contentType string, payload []byte, out any) error {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.opts.MaxRetries
	cfg.OnRetry = resilience.RetryLogger("origination-api", method+" "+rawURL)

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "http: rate limiter")
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return eris.Wrap(err, "http: build request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "http: request")
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := eris.Errorf("http: %s %s: status %d: %s",
				method, rawURL, resp.StatusCode, strings.TrimSpace(string(snippet)))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrap(err, "http: decode response")
		}
		return nil
	})
}
