package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netweave/netweave/pkg/cache"
	"github.com/netweave/netweave/pkg/credentials"
	"github.com/netweave/netweave/pkg/errors"
)

// memTokens is an in-memory credentials.Store for tests.
type memTokens struct {
	tok *credentials.Token
}

func (m *memTokens) Get(ctx context.Context, project, scope string) (*credentials.Token, error) {
	if m.tok == nil {
		return nil, credentials.ErrNotFound
	}
	return m.tok, nil
}

func (m *memTokens) Set(ctx context.Context, tok *credentials.Token) error {
	m.tok = tok
	return nil
}

func (m *memTokens) Delete(ctx context.Context, project, scope string) error {
	m.tok = nil
	return nil
}

func (m *memTokens) Close() error { return nil }

func tokens() *memTokens {
	return &memTokens{tok: credentials.New("netlab", TokenScope, "bearer-xyz", time.Hour)}
}

func newClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(url, "netlab", tokens(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func respond(w http.ResponseWriter, sr sliceResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sr)
}

func TestCreate(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq sliceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		respond(w, sliceResponse{Status: StatusWaiting})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	status, err := c.Create(context.Background(), "exp one", "<graphml/>")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if status != StatusWaiting {
		t.Errorf("status = %s", status)
	}
	if gotAuth != "Bearer bearer-xyz" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotPath != "/slices/exp%20one" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Project != "netlab" || gotReq.Payload != "<graphml/>" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server without a token")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "netlab", &memTokens{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Status(context.Background(), "exp1"); !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Status without token = %v", err)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want errors.Code
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrCodeUnauthorized},
		{"forbidden", http.StatusForbidden, errors.ErrCodeUnauthorized},
		{"not found", http.StatusNotFound, errors.ErrCodeNotFound},
		{"bad request", http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			c := newClient(t, srv.URL)
			_, err := c.Status(context.Background(), "exp1")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
			// Client errors are permanent and must not be retried.
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		respond(w, sliceResponse{Status: StatusOK})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	status, err := c.Status(context.Background(), "exp1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusOK {
		t.Errorf("status = %s", status)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFailedStatusCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, sliceResponse{Status: StatusFailed, Message: "insufficient capacity at RENC"})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Create(context.Background(), "exp1", "<graphml/>")
	if err == nil || !strings.Contains(err.Error(), "insufficient capacity") {
		t.Errorf("Create = %v", err)
	}
}

func TestQueryCaching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(w, sliceResponse{Status: StatusOK, Payload: "<graphml/>"})
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, srv.URL, WithCache(fc))

	ctx := context.Background()
	for range 2 {
		status, payload, err := c.Query(ctx, "exp1")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if status != StatusOK || payload != "<graphml/>" {
			t.Errorf("Query = %s %q", status, payload)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (second query served from cache)", calls.Load())
	}

	// Modify invalidates the cached payload.
	if _, err := c.Modify(ctx, "exp1", "<graphml/>"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Query(ctx, "exp1"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3 after invalidation", calls.Load())
	}
}

func TestRenewSendsUntil(t *testing.T) {
	var gotReq sliceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/renew") {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		respond(w, sliceResponse{Status: StatusOK})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	until := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if _, err := c.Renew(context.Background(), "exp1", until); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if gotReq.Until != "2026-09-01T12:00:00Z" {
		t.Errorf("until = %q", gotReq.Until)
	}
}

func TestUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, sliceResponse{})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	status, err := c.Status(context.Background(), "exp1")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusUnknown {
		t.Errorf("status = %s", status)
	}
}
