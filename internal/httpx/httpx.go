// Package httpx wraps net/http with retry, backoff, and JSON decoding for the
// Google Sheets and Drive clients.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPError carries the status and body of a non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %s %s: status %d: %s", e.Method, redactQuery(e.URL), e.StatusCode, snippet(e.Body, 512))
}

// StatusCode reports the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Retry5xx      bool
	RetryStatuses map[int]bool
}

// DefaultRetryConfig retries rate limits, timeouts, and 5xx responses a few
// times with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    15 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests: true,
			http.StatusRequestTimeout:  true,
			http.StatusTooEarly:        true,
		},
	}
}

// RequestBuilder constructs a fresh request for each attempt so bodies can be
// replayed.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// DoWithRetry executes the request built by build, retrying transient network
// errors and retryable statuses. The response body is always drained and
// returned so the connection can be reused.
func DoWithRetry(ctx context.Context, client *http.Client, build RequestBuilder, cfg RetryConfig) (*http.Response, []byte, error) {
	cfg = cfg.withDefaults()
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if retryableNetErr(ctx, err) && attempt < cfg.MaxAttempts {
				if err := sleepBackoff(ctx, attempt, cfg, 0); err != nil {
					return nil, nil, err
				}
				continue
			}
			return nil, nil, err
		}

		body, readErr := readAndClose(resp.Body)
		if readErr != nil {
			lastErr = readErr
			if retryableNetErr(ctx, readErr) && attempt < cfg.MaxAttempts {
				if err := sleepBackoff(ctx, attempt, cfg, 0); err != nil {
					return nil, nil, err
				}
				continue
			}
			return resp, body, readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, body, nil
		}

		herr := &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
		lastErr = herr
		if cfg.retryableStatus(resp.StatusCode) && attempt < cfg.MaxAttempts {
			if err := sleepBackoff(ctx, attempt, cfg, ParseRetryAfter(resp)); err != nil {
				return nil, nil, err
			}
			continue
		}
		return resp, body, herr
	}

	if lastErr == nil {
		lastErr = errors.New("httpx: request failed")
	}
	return nil, nil, lastErr
}

// DoJSON runs DoWithRetry and decodes the body into out when out is non-nil.
func DoJSON(ctx context.Context, client *http.Client, build RequestBuilder, out any, cfg RetryConfig) error {
	_, body, err := DoWithRetry(ctx, client, build, cfg)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode json response: %w (body %s)", err, snippet(body, 256))
	}
	return nil
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Missing or invalid values yield 0.
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.RetryStatuses == nil {
		cfg.RetryStatuses = def.RetryStatuses
	}
	return cfg
}

func (cfg RetryConfig) retryableStatus(code int) bool {
	if cfg.RetryStatuses[code] {
		return true
	}
	return cfg.Retry5xx && code >= 500 && code <= 599
}

func sleepBackoff(ctx context.Context, attempt int, cfg RetryConfig, retryAfter time.Duration) error {
	wait := retryAfter
	if wait <= 0 {
		wait = backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
	}
	if wait > cfg.MaxDelay {
		wait = cfg.MaxDelay
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func backoff(attempt int, base, limit time.Duration) time.Duration {
	wait := base << (attempt - 1)
	if wait <= 0 || wait > limit {
		wait = limit
	}
	// up to 25% jitter
	if quarter := int64(wait / 4); quarter > 0 {
		wait += time.Duration(rand.Int64N(quarter))
	}
	return wait
}

func retryableNetErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func snippet(b []byte, limit int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// redactQuery hides API keys and tokens passed as query parameters.
func redactQuery(raw string) string {
	idx := strings.IndexByte(raw, '?')
	if idx < 0 {
		return raw
	}
	params := strings.Split(raw[idx+1:], "&")
	for i, param := range params {
		name, _, found := strings.Cut(param, "=")
		if found && (name == "key" || name == "access_token") {
			params[i] = name + "=REDACTED"
		}
	}
	return raw[:idx+1] + strings.Join(params, "&")
}
