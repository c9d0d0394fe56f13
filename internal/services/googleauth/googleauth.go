// Package googleauth turns a Google credentials JSON file (service account or
// authorized user) into a refreshing OAuth2 token source for the Sheets and
// Drive clients.
package googleauth

import (
	"context"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"sessionreel/internal/services"
)

// Scopes requested for the schedule source and the Drive publisher.
const (
	ScopeSheetsReadOnly = "https://www.googleapis.com/auth/spreadsheets.readonly"
	ScopeDriveFile      = "https://www.googleapis.com/auth/drive.file"
)

// TokenSource reads the credentials file at path and returns a token source
// that mints and refreshes access tokens for scopes. ctx is used for token
// requests and must outlive the returned source.
func TokenSource(ctx context.Context, path string, scopes ...string) (oauth2.TokenSource, error) {
	creds, err := Credentials(ctx, path, scopes...)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}

// Credentials parses the credentials file at path for scopes.
func Credentials(ctx context.Context, path string, scopes ...string) (*google.Credentials, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "credentials", "credentials file not configured", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "credentials", "read "+path, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "credentials", "parse "+path, err)
	}
	return creds, nil
}

// Authorize returns a copy of base whose transport attaches tokens from ts.
// base keeps its timeout; a nil base uses http.DefaultTransport.
func Authorize(base *http.Client, ts oauth2.TokenSource) *http.Client {
	if ts == nil {
		return base
	}
	out := &http.Client{}
	if base != nil {
		*out = *base
	}
	out.Transport = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: out.Transport}
	return out
}
