package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vebgen/accesskit/internal/endpoint"
	"github.com/vebgen/accesskit/pkg/apierr"
)

// runApctl executes the root command with a config pointing at apiURL.
func runApctl(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()

	cfg := `
urls:
  webapp_domain: "https://www.example.com"
  api_domain: "` + apiURL + `"
  api_path: /api
log:
  level: error
endpoints:
  - name: user
    method: get
    path: /users/{id}
  - name: rename
    method: put
    path: /users/{id}
  - name: users
    method: get
    path: /users/
  - name: readonly
    method: get
    path: /users/
    permissions: [create]
`
	path := filepath.Join(t.TempDir(), "apctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	// Flag variables outlive a single Execute.
	callData, callArgs, callHeaders, listArgs, urlsJSON, logLevel = "", nil, nil, nil, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCall_GetWithPathArg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/42", r.URL.Path)
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		io.WriteString(w, `{"id":42,"name":"Ann"}`) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := runApctl(t, srv.URL, "call", "user", "--arg", "id=42", "--header", "X-Tenant=acme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42,"name":"Ann"}`, out)
}

func TestCall_PutSendsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.JSONEq(t, `{"name":"Bob"}`, string(b))
		w.Write(b) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := runApctl(t, srv.URL, "call", "rename", "--arg", "id=1", "--data", `{"name":"Bob"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bob"}`, out)
}

func TestCall_MissingPathArg(t *testing.T) {
	_, err := runApctl(t, "http://127.0.0.1:1", "call", "user")
	assert.ErrorIs(t, err, apierr.ErrMissingParam)
}

func TestCall_UnknownEndpoint(t *testing.T) {
	_, err := runApctl(t, "http://127.0.0.1:1", "call", "nope")
	assert.ErrorIs(t, err, endpoint.ErrUnknownEndpoint)
}

func TestCall_ServerErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"boom"}`) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := runApctl(t, srv.URL, "call", "user", "--arg", "id=1")
	e, ok := apierr.As(err)
	require.True(t, ok, "want *apierr.Error, got %v", err)
	assert.Equal(t, apierr.CodeUnknown, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestList_PrintsItemsByKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"b","n":2},{"id":"a","n":1}]`) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := runApctl(t, srv.URL, "list", "users")
	require.NoError(t, err)
	assert.Equal(t, "a\t{\"id\":\"a\",\"n\":1}\nb\t{\"id\":\"b\",\"n\":2}\n", out)
}

func TestList_ReadNotPermitted(t *testing.T) {
	_, err := runApctl(t, "http://127.0.0.1:1", "list", "readonly")
	assert.ErrorContains(t, err, "does not allow reading")
}

func TestURLs_JSON(t *testing.T) {
	out, err := runApctl(t, "https://api.example.com/", "urls", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://api.example.com", got["api_domain"])
	assert.Equal(t, "/api", got["api_path"])
	assert.Equal(t, "/api/auth", got["auth_path"])
	assert.Equal(t, "https://api.example.com", got["auth_domain"])
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"id=1", "q=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "1", "q": "a=b"}, got)

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)

	got, err = parsePairs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadPayload(t *testing.T) {
	p, err := readPayload("")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = readPayload("{not json")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))
	p, err = readPayload("@" + path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(*p))
}
