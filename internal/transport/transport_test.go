package transport

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/vebgen/accesskit/internal/config"
)

// echoAuth starts a server that records the headers of the last request.
func echoAuth(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func get(t *testing.T, c *http.Client, url string) {
	t.Helper()
	resp, err := c.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
}

func TestNew_Bearer(t *testing.T) {
	t.Setenv("TEST_TOKEN", "tok")
	srv, got := echoAuth(t)

	c, err := New(config.HTTPConfig{Auth: config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_TOKEN"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	get(t, c, srv.URL)

	if h := got.Get("Authorization"); h != "Bearer tok" {
		t.Errorf("Authorization: got %q, want %q", h, "Bearer tok")
	}
}

func TestNew_APIKey(t *testing.T) {
	t.Setenv("TEST_KEY", "k-123")
	srv, got := echoAuth(t)

	c, err := New(config.HTTPConfig{Auth: config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "TEST_KEY"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	get(t, c, srv.URL)

	if h := got.Get("X-Api-Key"); h != "k-123" {
		t.Errorf("X-Api-Key: got %q", h)
	}
}

func TestNew_Basic(t *testing.T) {
	t.Setenv("TEST_PASSWORD", "pw")
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	c, err := New(config.HTTPConfig{Auth: config.AuthConfig{Mode: "basic", Username: "ann", PasswordEnv: "TEST_PASSWORD"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	get(t, c, srv.URL)

	if !ok || user != "ann" || pass != "pw" {
		t.Errorf("basic auth: got (%q, %q, %v)", user, pass, ok)
	}
}

func TestNew_NoneSendsNoAuth(t *testing.T) {
	srv, got := echoAuth(t)
	c, err := New(config.HTTPConfig{Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Timeout != time.Second {
		t.Errorf("Timeout: got %v", c.Timeout)
	}
	get(t, c, srv.URL)
	if h := got.Get("Authorization"); h != "" {
		t.Errorf("Authorization: got %q, want none", h)
	}
}

func TestNew_DoesNotMutateCallerRequest(t *testing.T) {
	t.Setenv("TEST_TOKEN", "tok")
	srv, _ := echoAuth(t)
	c, err := New(config.HTTPConfig{Auth: config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_TOKEN"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if h := req.Header.Get("Authorization"); h != "" {
		t.Errorf("caller request mutated: Authorization %q", h)
	}
}

func TestNew_MTLSMissingCert(t *testing.T) {
	dir := t.TempDir()
	_, err := New(config.HTTPConfig{Auth: config.AuthConfig{
		Mode:     "mtls",
		CertFile: filepath.Join(dir, "client.crt"),
		KeyFile:  filepath.Join(dir, "client.key"),
	}})
	if err == nil {
		t.Fatal("expected error for missing client certificate")
	}
}
