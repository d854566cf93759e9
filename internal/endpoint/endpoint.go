// Package endpoint turns the declarative endpoints of the config file into
// access points, one per endpoint and result shape.
package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vebgen/accesskit/internal/config"
	"github.com/vebgen/accesskit/pkg/accesspoint"
	"github.com/vebgen/accesskit/pkg/appurls"
	"github.com/vebgen/accesskit/pkg/crud"
)

// ErrUnknownEndpoint is returned for names absent from the config.
var ErrUnknownEndpoint = errors.New("endpoint: unknown endpoint")

// Session is the caller context of configured access points.
type Session struct {
	// Authenticated is true when the HTTP client has a credential.
	Authenticated bool
}

// Item is one element of a list response.
type Item = map[string]any

// Raw is an access point passing JSON through unchanged.
type Raw = accesspoint.AccessPoint[Session, json.RawMessage, json.RawMessage]

// List is an access point decoding a JSON array of objects.
type List = accesspoint.AccessPoint[Session, json.RawMessage, []Item]

// Registry builds and caches access points by endpoint name.
type Registry struct {
	defs      map[string]config.Endpoint
	urls      appurls.URLs
	doer      accesspoint.Doer
	log       *slog.Logger
	observers []accesspoint.Observer

	mu    sync.Mutex
	raws  map[string]*Raw
	lists map[string]*List
}

// NewRegistry returns a Registry over defs. doer and log may be nil.
func NewRegistry(defs []config.Endpoint, urls appurls.URLs, doer accesspoint.Doer, log *slog.Logger, obs ...accesspoint.Observer) *Registry {
	r := &Registry{
		defs:      make(map[string]config.Endpoint, len(defs)),
		urls:      urls,
		doer:      doer,
		log:       log,
		observers: obs,
		raws:      make(map[string]*Raw),
		lists:     make(map[string]*List),
	}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	return r
}

// Names returns the endpoint names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Def returns the definition of name.
func (r *Registry) Def(name string) (config.Endpoint, error) {
	d, ok := r.defs[name]
	if !ok {
		return config.Endpoint{}, fmt.Errorf("%w %q", ErrUnknownEndpoint, name)
	}
	return d, nil
}

// Raw returns the pass-through access point of name.
func (r *Registry) Raw(name string) (*Raw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ap, ok := r.raws[name]; ok {
		return ap, nil
	}
	d, err := r.Def(name)
	if err != nil {
		return nil, err
	}
	ap, err := build[json.RawMessage](r, d)
	if err != nil {
		return nil, err
	}
	r.raws[name] = ap
	return ap, nil
}

// List returns the list access point of name.
func (r *Registry) List(name string) (*List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ap, ok := r.lists[name]; ok {
		return ap, nil
	}
	d, err := r.Def(name)
	if err != nil {
		return nil, err
	}
	ap, err := build[[]Item](r, d)
	if err != nil {
		return nil, err
	}
	r.lists[name] = ap
	return ap, nil
}

// Request returns the call inputs of name, carrying its configured timeout.
func (r *Registry) Request(name string, payload *json.RawMessage, args accesspoint.PathArgs) (accesspoint.Request[json.RawMessage], error) {
	d, err := r.Def(name)
	if err != nil {
		return accesspoint.Request[json.RawMessage]{}, err
	}
	timeout, err := d.CallTimeout()
	if err != nil {
		return accesspoint.Request[json.RawMessage]{}, fmt.Errorf("endpoint %q: %w", name, err)
	}
	return accesspoint.Request[json.RawMessage]{
		Payload:  payload,
		PathArgs: args,
		Timeout:  timeout,
	}, nil
}

// Permissions returns the CRUD permissions of name. An empty list in the
// config grants everything.
func (r *Registry) Permissions(name string) (crud.Permissions, error) {
	d, err := r.Def(name)
	if err != nil {
		return crud.Permissions{}, err
	}
	if len(d.Permissions) == 0 {
		return crud.AllowAll, nil
	}
	var p crud.Permissions
	for _, s := range d.Permissions {
		switch s {
		case "create":
			p.CanCreate = true
		case "read":
			p.CanRead = true
		case "update":
			p.CanUpdate = true
		case "delete":
			p.CanDelete = true
		}
	}
	return p, nil
}

// KeyFunc returns the CRUD key of an item: the string form of its field.
func KeyFunc(field string) func(Item) string {
	return func(it Item) string {
		v, ok := it[field]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// AllowPolicy converts an allow policy of the config file.
func AllowPolicy(policy string) func(Session) bool {
	switch policy {
	case "never":
		return func(Session) bool { return false }
	case "authenticated":
		return func(s Session) bool { return s.Authenticated }
	}
	return func(Session) bool { return true }
}

func build[R any](r *Registry, d config.Endpoint) (*accesspoint.AccessPoint[Session, json.RawMessage, R], error) {
	headers := d.Headers
	spec := accesspoint.Spec[Session, json.RawMessage, R]{
		BaseURL: accesspoint.Fixed[Session](r.baseURL(d.Root)),
		Method:  accesspoint.Fixed[Session](accesspoint.Method(d.Method)),
		Path:    accesspoint.Fixed[Session](d.Path),
		Headers: func(Session) map[string]string { return headers },
		Allowed: AllowPolicy(d.Allow),
	}
	opts := []accesspoint.Option{accesspoint.WithName(d.Name)}
	if r.doer != nil {
		opts = append(opts, accesspoint.WithTransport(r.doer))
	}
	if r.log != nil {
		opts = append(opts, accesspoint.WithLogger(r.log))
	}
	for _, o := range r.observers {
		opts = append(opts, accesspoint.WithObserver(o))
	}
	return accesspoint.New(spec, opts...)
}

func (r *Registry) baseURL(root string) string {
	switch root {
	case "", "api":
		return r.urls.APIRoot()
	case "auth":
		return r.urls.AuthRoot()
	case "webapp":
		return r.urls.WebappRoot()
	}
	return root
}
