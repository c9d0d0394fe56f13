package sheets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"sessionreel/internal/httpx"
	"sessionreel/internal/services"
	"sessionreel/internal/services/sheets"
)

func fastRetry() httpx.RetryConfig {
	cfg := httpx.DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestValuesUsesAPIKeyAndParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spreadsheets/sheet-1/values/Sessions!A:Z" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k-1" {
			t.Errorf("expected api key in query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header")
		}
		_, _ = w.Write([]byte(`{"range":"Sessions!A1:C3","majorDimension":"ROWS","values":[["Title of the session","Stage"],["Opening","Main"],["Closing"]]}`))
	}))
	defer srv.Close()

	client := sheets.New(sheets.Config{BaseURL: srv.URL, APIKey: "k-1"}, sheets.WithHTTPClient(srv.Client()), sheets.WithRetry(fastRetry()))
	rows, err := client.Values(context.Background(), "sheet-1", "Sessions!A:Z")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "Main" || len(rows[2]) != 1 {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestValuesPrefersBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key should not be sent with a token")
		}
		_, _ = w.Write([]byte(`{"values":[]}`))
	}))
	defer srv.Close()

	client := sheets.New(sheets.Config{BaseURL: srv.URL, APIKey: "k", AccessToken: "tok"}, sheets.WithHTTPClient(srv.Client()))
	if _, err := client.Values(context.Background(), "id", "A:Z"); err != nil {
		t.Fatalf("Values: %v", err)
	}
}

func TestTokenSourceTakesPrecedence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer minted" {
			t.Errorf("expected oauth2 token, got %q", got)
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key should not be sent with a token source")
		}
		_, _ = w.Write([]byte(`{"values":[["Title"]]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "minted"})
	client := sheets.New(sheets.Config{BaseURL: srv.URL, APIKey: "k", AccessToken: "stale"}, sheets.WithHTTPClient(srv.Client()), sheets.WithTokenSource(ts))
	rows, err := client.Values(context.Background(), "sheet-1", "A:Z")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows %v", rows)
	}

	bare := sheets.New(sheets.Config{BaseURL: srv.URL}, sheets.WithHTTPClient(srv.Client()), sheets.WithTokenSource(ts))
	if _, err := bare.Values(context.Background(), "sheet-1", "A:Z"); err != nil {
		t.Fatalf("token source alone should satisfy credentials: %v", err)
	}
}

func TestValuesMapsStatusToMarkers(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusInternalServerError, services.ErrExternalTool},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := sheets.New(sheets.Config{BaseURL: srv.URL, APIKey: "k"}, sheets.WithHTTPClient(srv.Client()), sheets.WithRetry(fastRetry()))
		_, err := client.Values(context.Background(), "id", "A:Z")
		srv.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestMissingCredentials(t *testing.T) {
	client := sheets.New(sheets.Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Values(context.Background(), "id", "A:Z"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := client.Authenticate(context.Background(), "id"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") != "spreadsheetId" {
			t.Errorf("unexpected fields %q", r.URL.Query().Get("fields"))
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"abc"}`))
	}))
	defer srv.Close()

	client := sheets.New(sheets.Config{BaseURL: srv.URL, APIKey: "k"}, sheets.WithHTTPClient(srv.Client()))
	if err := client.Authenticate(context.Background(), "abc"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}
