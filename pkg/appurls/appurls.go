// Package appurls resolves the domains and path prefixes of the web
// application, its API and its authentication API, and carries them through
// a context.Context.
//
// Each value is taken from the first non-empty source among: the explicit
// option, the REACT_APP_* environment variable, the NX_* environment
// variable, and a fallback derived from another value. Only the webapp
// domain has no derived fallback; it comes from Options.DetectOrigin or
// resolution fails.
package appurls

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// ErrWebappDomainMissing is returned by Resolve when no source provides the
// webapp domain.
var ErrWebappDomainMissing = errors.New(
	"appurls: the webapp domain must be set explicitly or in the " +
		"REACT_APP_WEBSITE_DOMAIN or NX_WEBSITE_DOMAIN environment variables")

// Keys of the resolved values.
const (
	KeyWebappDomain = "webapp_domain"
	KeyWebappPath   = "webapp_path"
	KeyAPIDomain    = "api_domain"
	KeyAPIPath      = "api_path"
	KeyAuthDomain   = "auth_domain"
	KeyAuthPath     = "auth_path"
)

// envNames lists, per key, the environment variables to consult in order.
var envNames = map[string][]string{
	KeyWebappDomain: {"REACT_APP_WEBSITE_DOMAIN", "NX_WEBSITE_DOMAIN"},
	KeyWebappPath:   {"REACT_APP_WEBSITE_PATH", "NX_WEBSITE_PATH"},
	KeyAPIDomain:    {"REACT_APP_API_DOMAIN", "NX_API_DOMAIN"},
	KeyAPIPath:      {"REACT_APP_API_PATH", "NX_API_PATH"},
	KeyAuthDomain:   {"REACT_APP_AUTH_DOMAIN", "NX_AUTH_DOMAIN"},
	KeyAuthPath:     {"REACT_APP_AUTH_PATH", "NX_AUTH_PATH"},
}

// EnvNames returns the environment variables consulted for key, in order.
func EnvNames(key string) []string {
	return append([]string(nil), envNames[key]...)
}

// Options are explicit values; empty fields fall through to the environment.
type Options struct {
	WebappDomain string `yaml:"webapp_domain"`
	WebappPath   string `yaml:"webapp_path"`
	APIDomain    string `yaml:"api_domain"`
	APIPath      string `yaml:"api_path"`
	AuthDomain   string `yaml:"auth_domain"`
	AuthPath     string `yaml:"auth_path"`

	// DetectOrigin is consulted last for the webapp domain.
	DetectOrigin func() string `yaml:"-"`
}

// URLs are resolved domains and paths. Domains never end with a slash.
// Paths are empty or start with a slash, and never end with one.
type URLs struct {
	WebappDomain string `json:"webapp_domain" yaml:"webapp_domain"`
	WebappPath   string `json:"webapp_path" yaml:"webapp_path"`
	APIDomain    string `json:"api_domain" yaml:"api_domain"`
	APIPath      string `json:"api_path" yaml:"api_path"`
	AuthDomain   string `json:"auth_domain" yaml:"auth_domain"`
	AuthPath     string `json:"auth_path" yaml:"auth_path"`
}

// Resolve computes URLs from o and the process environment.
func Resolve(o Options) (URLs, error) {
	v := viper.New()
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return URLs{}, err
		}
	}
	for key, val := range map[string]string{
		KeyWebappDomain: o.WebappDomain,
		KeyWebappPath:   o.WebappPath,
		KeyAPIDomain:    o.APIDomain,
		KeyAPIPath:      o.APIPath,
		KeyAuthDomain:   o.AuthDomain,
		KeyAuthPath:     o.AuthPath,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}

	var u URLs
	u.WebappDomain = v.GetString(KeyWebappDomain)
	if u.WebappDomain == "" && o.DetectOrigin != nil {
		u.WebappDomain = o.DetectOrigin()
	}
	if u.WebappDomain == "" {
		return URLs{}, ErrWebappDomainMissing
	}
	u.WebappDomain = normDomain(u.WebappDomain)
	u.WebappPath = normPath(v.GetString(KeyWebappPath))

	u.APIDomain = normDomain(or(v.GetString(KeyAPIDomain), u.WebappDomain))
	u.APIPath = normPath(or(v.GetString(KeyAPIPath), u.WebappPath))

	u.AuthDomain = normDomain(or(v.GetString(KeyAuthDomain), u.APIDomain))
	u.AuthPath = normPath(or(v.GetString(KeyAuthPath), u.APIPath+"/auth"))
	return u, nil
}

// APIRoot is the base URL of the API, for accesspoint.WithAPIRoot.
func (u URLs) APIRoot() string { return u.APIDomain + u.APIPath }

// AuthRoot is the base URL of the authentication API.
func (u URLs) AuthRoot() string { return u.AuthDomain + u.AuthPath }

// WebappRoot is the base URL of the web application.
func (u URLs) WebappRoot() string { return u.WebappDomain + u.WebappPath }

// APIURL joins endpoint to the API root. endpoint should start with a slash.
func (u URLs) APIURL(endpoint string) string { return u.APIRoot() + endpoint }

// WebappURL joins endpoint to the webapp root.
func (u URLs) WebappURL(endpoint string) string { return u.WebappRoot() + endpoint }

// AuthURL joins endpoint to the authentication API root.
func (u URLs) AuthURL(endpoint string) string { return u.AuthRoot() + endpoint }

type ctxKey struct{}

// WithURLs returns a copy of ctx carrying u.
func WithURLs(ctx context.Context, u URLs) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the URLs carried by ctx.
func FromContext(ctx context.Context) (URLs, bool) {
	u, ok := ctx.Value(ctxKey{}).(URLs)
	return u, ok
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func normDomain(d string) string { return strings.TrimRight(d, "/") }

func normPath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
