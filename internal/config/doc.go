// Package config loads and watches the apctl configuration file (config.yaml).
//
// Top-level types:
//   - Config{URLs, HTTP, Log, Serve, Endpoints}: full config tree parsed from YAML
//   - HTTPConfig: client timeout cap, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none), cert/key/ca files,
//     header, key_env, token_env, username, password_env; Key(), Token() and
//     Password() resolve from environment variables
//   - Endpoint: name, method, path pattern, root (api|auth|webapp|URL),
//     headers, timeout (duration or "none"), key_field, allow, permissions
//
// Load(path) reads the YAML file, applies defaults (30s client timeout,
// :8080 listen, 30s reload, info/json logging, POST on the api root), then
// validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each
// reload so that atomic-save editors (vim, VS Code) keep being followed.
package config
