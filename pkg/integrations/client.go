package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/matzehuels/revdeps/pkg/httputil"
	"github.com/matzehuels/revdeps/pkg/observability"
)

// Options configures a [Client].
type Options struct {
	// HTTP is the underlying client. Nil uses [httputil.NewHTTPClient] with
	// default transport settings.
	HTTP *http.Client

	// Headers are applied to all requests made through the client.
	Headers map[string]string

	// RateLimit caps requests per second across all goroutines sharing the
	// client. Zero disables rate limiting.
	RateLimit float64

	// Retry decides how transient failures are re-attempted.
	// The zero value performs a single attempt.
	Retry httputil.RetryPolicy
}

// Client provides shared HTTP functionality for registry API clients.
// It handles rate limiting, retry of transient failures, status
// classification and common request headers. A Client is safe for
// concurrent use.
type Client struct {
	http    *http.Client
	headers map[string]string
	limiter *rate.Limiter
	retry   httputil.RetryPolicy
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		hc = httputil.NewHTTPClient(httputil.DefaultTransportConfig())
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{
		http:    hc,
		headers: opts.Headers,
		limiter: limiter,
		retry:   opts.Retry,
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// Decode failures are reported as [ErrDecode] and are never retried.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	return c.retry.Do(ctx, func() error {
		body, err := c.doRequest(ctx, rawURL)
		if err != nil {
			return err
		}
		defer body.Close()
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return decodeError(rawURL, err)
		}
		return nil
	})
}

// Open performs an HTTP GET request and returns the response body as a
// forward-only stream. The caller must close it. Only obtaining the response
// is retried; reading the body is not.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := c.retry.Do(ctx, func() error {
		b, err := c.doRequest(ctx, rawURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(rawURL, err)
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(rawURL, resp.StatusCode, resp.Header.Get("Retry-After")); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func hostPath(u *url.URL) (string, string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}
