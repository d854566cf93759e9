package appurls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Resolve reads so the host environment
// does not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range envNames {
		for _, name := range EnvNames(key) {
			t.Setenv(name, "")
		}
	}
}

func TestResolve_Derived(t *testing.T) {
	clearEnv(t)
	u, err := Resolve(Options{WebappDomain: "https://www.example.com/", WebappPath: "app/"})
	require.NoError(t, err)

	assert.Equal(t, URLs{
		WebappDomain: "https://www.example.com",
		WebappPath:   "/app",
		APIDomain:    "https://www.example.com",
		APIPath:      "/app",
		AuthDomain:   "https://www.example.com",
		AuthPath:     "/app/auth",
	}, u)
	assert.Equal(t, "https://www.example.com/app/users", u.APIURL("/users"))
	assert.Equal(t, "https://www.example.com/app/auth/login", u.AuthURL("/login"))
	assert.Equal(t, "https://www.example.com/app/", u.WebappURL("/"))
}

func TestResolve_EmptyPathsStayEmpty(t *testing.T) {
	clearEnv(t)
	u, err := Resolve(Options{WebappDomain: "https://h"})
	require.NoError(t, err)
	assert.Equal(t, "", u.WebappPath)
	assert.Equal(t, "", u.APIPath)
	assert.Equal(t, "/auth", u.AuthPath)
	assert.Equal(t, "https://h", u.APIRoot())
}

func TestResolve_EnvPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("REACT_APP_API_DOMAIN", "https://react.example.com")
	t.Setenv("NX_API_DOMAIN", "https://nx.example.com")
	t.Setenv("NX_API_PATH", "/api/v1/")
	t.Setenv("NX_WEBSITE_DOMAIN", "https://web.example.com")

	u, err := Resolve(Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://web.example.com", u.WebappDomain)
	assert.Equal(t, "https://react.example.com", u.APIDomain, "REACT_APP_ beats NX_")
	assert.Equal(t, "/api/v1", u.APIPath)
	assert.Equal(t, "https://react.example.com", u.AuthDomain)
	assert.Equal(t, "/api/v1/auth", u.AuthPath)

	u, err = Resolve(Options{APIDomain: "https://explicit.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://explicit.example.com", u.APIDomain, "explicit beats env")
}

func TestResolve_DetectOrigin(t *testing.T) {
	clearEnv(t)
	u, err := Resolve(Options{DetectOrigin: func() string { return "http://localhost:3000/" }})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", u.WebappDomain)

	t.Setenv("REACT_APP_WEBSITE_DOMAIN", "https://env.example.com")
	u, err = Resolve(Options{DetectOrigin: func() string { return "http://localhost:3000" }})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", u.WebappDomain)
}

func TestResolve_MissingWebappDomain(t *testing.T) {
	clearEnv(t)
	_, err := Resolve(Options{})
	assert.ErrorIs(t, err, ErrWebappDomainMissing)
}

func TestContextCarrier(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	want := URLs{WebappDomain: "https://h"}
	got, ok := FromContext(WithURLs(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}
