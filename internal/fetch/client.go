package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// client is the shared HTTP layer under every adapter: user agent,
// per-host rate limiting and error classification live here.
type client struct {
	hc        *http.Client
	limiter   *HostLimiter
	userAgent string
	log       *slog.Logger
}

// getJSON fetches url and decodes the body into v.
func (c *client) getJSON(ctx context.Context, source, url string, v any) error {
	return c.doJSON(ctx, source, http.MethodGet, url, nil, v)
}

// postJSON sends body as JSON to url and decodes the response into v.
func (c *client) postJSON(ctx context.Context, source, url string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindMalformed, Source: source, URL: url, Err: err}
	}
	return c.doJSON(ctx, source, http.MethodPost, url, payload, v)
}

func (c *client) doJSON(ctx context.Context, source, method, url string, body []byte, v any) error {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, url); err != nil {
			return &Error{Kind: KindTransient, Source: source, URL: url, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Kind: KindPermanent, Source: source, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("http request", "method", method, "url", url, "source", source)

	res, err := c.hc.Do(req)
	if err != nil {
		// context cancellation and network failures both land here
		return &Error{Kind: KindTransient, Source: source, URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		// drain a little so the error message has something to show
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return &Error{
			Kind:   kindForStatus(res.StatusCode),
			Source: source,
			URL:    url,
			Status: res.StatusCode,
			Err:    fmt.Errorf("%s", bytes.TrimSpace(snippet)),
		}
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &Error{Kind: KindTransient, Source: source, URL: url, Err: err}
		}
		return &Error{Kind: KindMalformed, Source: source, URL: url, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
