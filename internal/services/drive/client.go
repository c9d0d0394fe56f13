// Package drive uploads files into Google Drive folders through the v3 REST API.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"sessionreel/internal/httpx"
	"sessionreel/internal/publish"
	"sessionreel/internal/services"
	"sessionreel/internal/services/googleauth"
)

const (
	defaultBaseURL   = "https://www.googleapis.com/drive/v3"
	defaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
)

// uploadRetry sends a multipart POST once. Drive creates a new file per
// accepted request, so a 5xx after the body was read may still have landed.
var uploadRetry = httpx.RetryConfig{MaxAttempts: 1}

// Config holds the static access token and endpoints. A token source passed
// with WithTokenSource takes the place of AccessToken.
type Config struct {
	AccessToken string
	BaseURL     string
	UploadURL   string
	Timeout     time.Duration
}

// Client uploads files to Drive.
type Client struct {
	token     string
	baseURL   string
	uploadURL string
	http      *http.Client
	retry     httpx.RetryConfig
	source    oauth2.TokenSource
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

// WithRetry overrides the retry policy for Check. Uploads are never retried.
func WithRetry(cfg httpx.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithTokenSource authorizes requests with OAuth2 tokens from ts, typically a
// service account loaded through googleauth.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.source = ts }
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		token:     strings.TrimSpace(cfg.AccessToken),
		baseURL:   trimOr(cfg.BaseURL, defaultBaseURL),
		uploadURL: trimOr(cfg.UploadURL, defaultUploadURL),
		http:      &http.Client{Timeout: cfg.Timeout},
		retry:     httpx.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.source != nil {
		c.http = googleauth.Authorize(c.http, c.source)
	}
	return c
}

func (c *Client) authorized() bool {
	return c.source != nil || c.token != ""
}

// setAuth adds the static bearer token; the oauth2 transport handles the rest.
func (c *Client) setAuth(req *http.Request) {
	if c.source == nil {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

type fileMetadata struct {
	Name     string   `json:"name"`
	Parents  []string `json:"parents,omitempty"`
	MimeType string   `json:"mimeType,omitempty"`
}

type fileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// Upload implements publish.Uploader. destination is the parent folder ID.
func (c *Client) Upload(ctx context.Context, localPath, displayName, destination string) (publish.Remote, error) {
	if !c.authorized() {
		return publish.Remote{}, services.Wrap(services.ErrConfiguration, "publish", "drive upload", "credentials required", nil)
	}
	if _, err := os.Stat(localPath); err != nil {
		return publish.Remote{}, services.Wrap(services.ErrNotFound, "publish", "drive upload", localPath, err)
	}
	meta := fileMetadata{Name: displayName, MimeType: contentType(localPath)}
	if destination != "" {
		meta.Parents = []string{destination}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return publish.Remote{}, fmt.Errorf("encode metadata: %w", err)
	}

	query := url.Values{}
	query.Set("uploadType", "multipart")
	query.Set("fields", "id,name,webViewLink")
	query.Set("supportsAllDrives", "true")
	endpoint := c.uploadURL + "/files?" + query.Encode()

	build := func(ctx context.Context) (*http.Request, error) {
		body, contentTypeHeader, err := multipartBody(localPath, metaJSON, meta.MimeType)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			body.Close()
			return nil, err
		}
		req.Header.Set("Content-Type", contentTypeHeader)
		c.setAuth(req)
		return req, nil
	}

	var out fileResponse
	if err := httpx.DoJSON(ctx, c.http, build, &out, uploadRetry); err != nil {
		return publish.Remote{}, wrap("drive upload", err)
	}
	return publish.Remote{ID: out.ID, Name: out.Name, Link: out.WebViewLink}, nil
}

// Check implements publish.Checker by fetching the authenticated user.
func (c *Client) Check(ctx context.Context) error {
	if !c.authorized() {
		return services.Wrap(services.ErrConfiguration, "publish", "drive check", "credentials required", nil)
	}
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/about?fields=user", nil)
		if err != nil {
			return nil, err
		}
		c.setAuth(req)
		return req, nil
	}
	if err := httpx.DoJSON(ctx, c.http, build, nil, c.retry); err != nil {
		return wrap("drive check", err)
	}
	return nil
}

// multipartBody streams a multipart/related body of metadata then media.
func multipartBody(localPath string, metaJSON []byte, mediaType string) (io.ReadCloser, string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, "", err
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		err := writeParts(mw, file, metaJSON, mediaType)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, "multipart/related; boundary=" + mw.Boundary(), nil
}

func writeParts(mw *multipart.Writer, media io.Reader, metaJSON []byte, mediaType string) error {
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return err
	}
	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mediaType)
	part, err = mw.CreatePart(mediaHeader)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, media)
	return err
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func wrap(op string, err error) error {
	switch status := httpx.StatusCode(err); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "publish", op, "credentials rejected", err)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "publish", op, "folder not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "publish", op, "request timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, "publish", op, "drive api request failed", err)
	}
}

func trimOr(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}

var (
	_ publish.Uploader = (*Client)(nil)
	_ publish.Checker  = (*Client)(nil)
)
