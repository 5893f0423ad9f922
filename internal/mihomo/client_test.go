package mihomo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/btnalit/clash-cfg-edit/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(logger.NewNop()), strings.TrimPrefix(ts.URL, "http://")
}

func TestClientSendsBearerSecret(t *testing.T) {
	var got string
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := c.Get(context.Background(), addr, "/configs", "s3cret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bearer s3cret" {
		t.Errorf("Authorization = %q, want bearer secret", got)
	}
}

func TestClientOmitsAuthorizationWithoutSecret(t *testing.T) {
	var got string
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := c.Get(context.Background(), addr, "/configs", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestClientNonSuccessBecomesAPIError(t *testing.T) {
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized\n"))
	})

	_, err := c.Get(context.Background(), addr, "/configs", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", apiErr.Status)
	}
	if apiErr.Body != "Unauthorized" {
		t.Errorf("Body = %q, want trimmed body", apiErr.Body)
	}
}

func TestClientVersion(t *testing.T) {
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			t.Errorf("path = %q, want /version", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"version": "v1.18.7"}`))
	})

	v, err := c.Version(context.Background(), addr, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "v1.18.7" {
		t.Errorf("version = %q", v)
	}
}

func TestClientVersionUnknownFallback(t *testing.T) {
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	v, err := c.Version(context.Background(), addr, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "unknown" {
		t.Errorf("version = %q, want unknown", v)
	}
}

func TestConnRules(t *testing.T) {
	c, addr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rules" {
			t.Errorf("path = %q, want /rules", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"rules": [
			{"type": "DOMAIN", "payload": "example.com", "proxy": "DIRECT"},
			{"type": "GEOIP", "payload": "CN", "proxy": "DIRECT", "noResolve": true}
		]}`))
	})

	rules, err := c.Conn(addr, "").Rules(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if !rules[1].NoResolve {
		t.Errorf("noResolve flag lost: %#v", rules[1])
	}
}
