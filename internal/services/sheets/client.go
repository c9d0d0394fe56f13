// Package sheets reads cell values from the Google Sheets v4 REST API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"sessionreel/internal/httpx"
	"sessionreel/internal/services"
	"sessionreel/internal/services/googleauth"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Config holds credentials and endpoint settings. One of APIKey, AccessToken,
// or a WithTokenSource option must be set.
type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
}

// Client fetches spreadsheet ranges.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	http        *http.Client
	retry       httpx.RetryConfig
	source      oauth2.TokenSource
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg httpx.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithTokenSource authorizes requests with OAuth2 tokens from ts. It takes
// precedence over APIKey and AccessToken.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.source = ts }
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:     base,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		http:        &http.Client{Timeout: timeout},
		retry:       httpx.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.source != nil {
		c.http = googleauth.Authorize(c.http, c.source)
	}
	return c
}

type valueRange struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// Values returns the rows of the given A1 range as formatted strings. Trailing
// empty cells are omitted by the API, so rows may be ragged.
func (c *Client) Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	if err := c.ensureCredentials(); err != nil {
		return nil, err
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "source", "values", "spreadsheet id is empty", nil)
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s", c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(a1Range))
	query := url.Values{}
	query.Set("majorDimension", "ROWS")
	query.Set("valueRenderOption", "FORMATTED_VALUE")

	var out valueRange
	if err := httpx.DoJSON(ctx, c.http, c.builder(endpoint, query), &out, c.retry); err != nil {
		return nil, c.wrap("values", err)
	}
	return out.Values, nil
}

// Authenticate verifies credentials by fetching spreadsheet metadata.
func (c *Client) Authenticate(ctx context.Context, spreadsheetID string) error {
	if err := c.ensureCredentials(); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s", c.baseURL, url.PathEscape(strings.TrimSpace(spreadsheetID)))
	query := url.Values{}
	query.Set("fields", "spreadsheetId")

	var out struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := httpx.DoJSON(ctx, c.http, c.builder(endpoint, query), &out, c.retry); err != nil {
		return c.wrap("authenticate", err)
	}
	if out.SpreadsheetID == "" {
		return services.Wrap(services.ErrNotFound, "source", "authenticate", "spreadsheet metadata missing id", nil)
	}
	return nil
}

func (c *Client) ensureCredentials() error {
	if c.source == nil && c.apiKey == "" && c.accessToken == "" {
		return services.Wrap(services.ErrConfiguration, "source", "credentials", "credentials file, api key, or access token required", nil)
	}
	return nil
}

func (c *Client) builder(endpoint string, query url.Values) httpx.RequestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if c.source == nil && c.accessToken == "" {
			q.Set("key", c.apiKey)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.source == nil && c.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}
		return req, nil
	}
}

func (c *Client) wrap(op string, err error) error {
	switch status := httpx.StatusCode(err); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "source", op, "credentials rejected", err)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "source", op, "spreadsheet or range not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "source", op, "request timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, "source", op, "sheets api request failed", err)
	}
}
