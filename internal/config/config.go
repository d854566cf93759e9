package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vebgen/accesskit/pkg/accesspoint"
	"github.com/vebgen/accesskit/pkg/applog"
	"github.com/vebgen/accesskit/pkg/appurls"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultClientTimeout  = 30 * time.Second
	DefaultListen         = ":8080"
	DefaultReloadInterval = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultKeyField       = "id"
)

// Config is the top-level apctl configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	// URLs are explicit values; empty ones fall through to the environment.
	URLs appurls.Options `yaml:"urls"`

	HTTP HTTPConfig `yaml:"http"`
	Log  LogConfig  `yaml:"log"`

	// Serve configures `apctl serve`.
	Serve ServeConfig `yaml:"serve"`

	// Endpoints are the access points available by name.
	Endpoints []Endpoint `yaml:"endpoints"`
}

// HTTPConfig configures the shared HTTP client.
type HTTPConfig struct {
	// Timeout is the client-wide hard cap on any request. Per-call timeouts
	// are set on endpoints. Zero disables the cap.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how requests are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for outgoing requests.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the variable holding the bearer token (Mode == "bearer").
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string { return lookup(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return lookup(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return lookup(a.PasswordEnv) }

// Credentialed reports whether the configured mode has its credential
// available. Mode none never has one.
func (a AuthConfig) Credentialed() bool {
	switch a.Mode {
	case "apikey":
		return a.Key() != ""
	case "bearer":
		return a.Token() != ""
	case "basic":
		return a.Username != "" && a.Password() != ""
	case "mtls":
		return a.CertFile != "" && a.KeyFile != ""
	}
	return false
}

func lookup(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is one of trace | debug | info | warning | error | security | critical.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// ServeConfig configures the state server.
type ServeConfig struct {
	// Listen is the address of the WebSocket and metrics server.
	Listen string `yaml:"listen"`

	// ReloadInterval controls how often the served list is fetched again.
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// Endpoint declares one access point.
type Endpoint struct {
	// Name identifies the endpoint on the command line.
	Name string `yaml:"name"`

	// Method is GET | POST | PUT | DELETE. Default POST.
	Method string `yaml:"method"`

	// Path is the path pattern, with {name} placeholders.
	Path string `yaml:"path"`

	// Root is api | auth | webapp, or an absolute base URL. Default api.
	Root string `yaml:"root"`

	Headers map[string]string `yaml:"headers"`

	// Timeout is a duration, or "none" to disable timeout and supersession.
	// Empty means the access point default.
	Timeout string `yaml:"timeout"`

	// KeyField names the item field used as CRUD key for list endpoints.
	KeyField string `yaml:"key_field"`

	// Allow is always | authenticated | never. Default always.
	Allow string `yaml:"allow"`

	// Permissions lists the allowed CRUD operations among
	// create | read | update | delete. Empty allows all.
	Permissions []string `yaml:"permissions"`
}

// CallTimeout converts Timeout for accesspoint.Request.
func (e Endpoint) CallTimeout() (time.Duration, error) {
	switch strings.TrimSpace(e.Timeout) {
	case "":
		return 0, nil
	case "none":
		return accesspoint.NoTimeout, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyEndpointDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Endpoint returns the endpoint named name.
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{Timeout: DefaultClientTimeout},
		Log:  LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Serve: ServeConfig{
			Listen:         DefaultListen,
			ReloadInterval: DefaultReloadInterval,
		},
	}
}

func applyEndpointDefaults(cfg *Config) {
	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]
		if ep.Method == "" {
			ep.Method = string(accesspoint.MethodPost)
		}
		ep.Method = strings.ToUpper(ep.Method)
		if ep.Root == "" {
			ep.Root = "api"
		}
		if ep.KeyField == "" {
			ep.KeyField = DefaultKeyField
		}
		if ep.Allow == "" {
			ep.Allow = "always"
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	switch cfg.HTTP.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("http.auth: unknown mode %q", cfg.HTTP.Auth.Mode)
	}
	if cfg.HTTP.Auth.Mode == "apikey" && cfg.HTTP.Auth.Header == "" {
		return fmt.Errorf("http.auth: header is required for apikey mode")
	}
	if _, err := applog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	if cfg.Serve.ReloadInterval <= 0 {
		return fmt.Errorf("serve.reload_interval must be positive")
	}

	seen := make(map[string]bool, len(cfg.Endpoints))
	for i, ep := range cfg.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoints[%d]: name is required", i)
		}
		if seen[ep.Name] {
			return fmt.Errorf("endpoints[%d] %q: duplicate name", i, ep.Name)
		}
		seen[ep.Name] = true
		if ep.Path == "" {
			return fmt.Errorf("endpoints[%d] %q: path is required", i, ep.Name)
		}
		switch accesspoint.Method(ep.Method) {
		case accesspoint.MethodGet, accesspoint.MethodPost, accesspoint.MethodPut, accesspoint.MethodDelete:
		default:
			return fmt.Errorf("endpoints[%d] %q: unknown method %q", i, ep.Name, ep.Method)
		}
		switch {
		case ep.Root == "api", ep.Root == "auth", ep.Root == "webapp":
		case strings.HasPrefix(ep.Root, "http://"), strings.HasPrefix(ep.Root, "https://"):
		default:
			return fmt.Errorf("endpoints[%d] %q: unknown root %q", i, ep.Name, ep.Root)
		}
		if _, err := ep.CallTimeout(); err != nil {
			return fmt.Errorf("endpoints[%d] %q: timeout %q: %w", i, ep.Name, ep.Timeout, err)
		}
		switch ep.Allow {
		case "always", "authenticated", "never":
		default:
			return fmt.Errorf("endpoints[%d] %q: unknown allow policy %q", i, ep.Name, ep.Allow)
		}
		for _, p := range ep.Permissions {
			switch p {
			case "create", "read", "update", "delete":
			default:
				return fmt.Errorf("endpoints[%d] %q: unknown permission %q", i, ep.Name, p)
			}
		}
	}
	return nil
}
