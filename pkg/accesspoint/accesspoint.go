package accesspoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vebgen/accesskit/pkg/apierr"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Outcome summarizes one settled call for observers.
type Outcome struct {
	Endpoint string
	Method   Method
	// Status is the response status, 0 when no response was received.
	Status int
	// Code is empty on success.
	Code     apierr.Code
	Duration time.Duration
}

// Observer is notified once per settled call. Calls rejected with a
// configuration error are not observed.
type Observer interface {
	ObserveCall(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

// ObserveCall implements Observer.
func (f ObserverFunc) ObserveCall(o Outcome) { f(o) }

type options struct {
	name      string
	root      string
	doer      Doer
	log       *slog.Logger
	observers []Observer
}

// Option configures an AccessPoint.
type Option func(*options)

// WithTransport sets the HTTP client. Default: http.DefaultClient.
func WithTransport(d Doer) Option { return func(o *options) { o.doer = d } }

// WithAPIRoot sets the base URL used when Spec.BaseURL is nil.
func WithAPIRoot(root string) Option { return func(o *options) { o.root = root } }

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithObserver registers an observer. May be given several times.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithName names the endpoint in log records and outcomes.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// token is the cancellation handle of one timed call.
type token struct {
	cancel context.CancelFunc
}

// AccessPoint is a reusable declaration of one HTTP endpoint.
//
// An AccessPoint holds at most one outstanding timed call: starting a new
// timed call cancels the previous one, which then fails with err-comm.
// Calls with NoTimeout are neither cancelled by nor cancel other calls.
// Use one AccessPoint per usage site so that supersession stays local.
type AccessPoint[C, P, R any] struct {
	spec      Spec[C, P, R]
	name      string
	doer      Doer
	log       *slog.Logger
	observers []Observer

	mu       sync.Mutex
	inflight *token
}

// New validates spec and builds an AccessPoint.
func New[C, P, R any](spec Spec[C, P, R], opts ...Option) (*AccessPoint[C, P, R], error) {
	if spec.Path == nil {
		return nil, apierr.ErrPathPatternMissing
	}
	o := options{name: "accesspoint", doer: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return &AccessPoint[C, P, R]{
		spec:      spec.withDefaults(o.root),
		name:      o.name,
		doer:      o.doer,
		log:       o.log,
		observers: o.observers,
	}, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// declarations.
func MustNew[C, P, R any](spec Spec[C, P, R], opts ...Option) *AccessPoint[C, P, R] {
	ap, err := New(spec, opts...)
	if err != nil {
		panic(err)
	}
	return ap
}

// Name returns the endpoint name.
func (ap *AccessPoint[C, P, R]) Name() string { return ap.name }

// URL resolves the request URL for c and args without calling anything.
func (ap *AccessPoint[C, P, R]) URL(c C, args PathArgs) (string, error) {
	return BuildURL(ap.spec.BaseURL(c), ap.spec.Path(c), args)
}

// Call performs one request.
//
// Configuration errors (see apierr.IsConfig) are returned before anything
// else happens. Every other failure is an *apierr.Error.
func (ap *AccessPoint[C, P, R]) Call(ctx context.Context, c C, req Request[P]) (R, error) {
	var zero R

	info := CallInfo[C, P]{
		ID:       uuid.NewString(),
		Context:  c,
		Payload:  req.Payload,
		PathArgs: req.PathArgs,
	}
	log := ap.log.With("endpoint", ap.name, "call_id", info.ID)

	body, err := ap.spec.Body(c, req.Payload)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", apierr.ErrBody, err)
	}
	info.Headers = ap.headers(c, req.Headers)
	method := ap.spec.Method(c)
	url, err := ap.URL(c, req.PathArgs)
	if err != nil {
		log.Error("accesspoint: cannot build url", "err", err)
		return zero, err
	}
	log.Debug("accesspoint: call",
		"method", method,
		"url", url,
		"headers", headerNames(info.Headers),
		"body_bytes", len(body),
		"timeout", req.Timeout,
	)

	var tok *token
	if req.timed() {
		ctx, tok = ap.acquire(ctx, req.timeout(), log)
	}

	start := time.Now()
	if !ap.spec.Allowed(c) {
		ap.drop(tok)
		log.Debug("accesspoint: not allowed")
		e := ap.adjust(c, apierr.Permission())
		ap.settle(method, 0, e, start)
		return zero, e
	}

	resp, err := ap.send(ctx, tok, method, url, body, info.Headers)
	if err != nil {
		log.Debug("accesspoint: transport failed", "err", err)
		e := ap.adjust(c, apierr.Comm())
		ap.settle(method, 0, e, start)
		return zero, e
	}
	defer resp.Body.Close()
	info.Status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("accesspoint: reading body failed", "status", resp.StatusCode, "err", err)
		e := ap.adjust(c, apierr.Comm())
		ap.settle(method, 0, e, start)
		return zero, e
	}

	if !json.Valid(raw) {
		msg := string(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Debug("accesspoint: response is not json", "status", resp.StatusCode)
		e := apierr.Other(resp.StatusCode, msg)
		ap.settle(method, resp.StatusCode, e, start)
		return zero, e
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		r, err := ap.spec.Result(ctx, raw, info)
		if err != nil {
			log.Debug("accesspoint: result processing failed", "status", resp.StatusCode, "err", err)
			ap.settle(method, resp.StatusCode, err, start)
			return zero, err
		}
		log.Debug("accesspoint: success", "status", resp.StatusCode)
		ap.settle(method, resp.StatusCode, nil, start)
		return r, nil
	}

	e := ap.spec.Failure(ctx, resp, raw, info)
	if e == nil {
		e = apierr.Unknown(resp.StatusCode)
	}
	e = ap.adjust(c, e)
	log.Debug("accesspoint: failure", "status", resp.StatusCode, "code", e.Code)
	ap.settle(method, resp.StatusCode, e, start)
	return zero, e
}

// send issues the request. A timed request holds the slot through tok until
// the transport returns; its context is cancelled when the body is closed.
func (ap *AccessPoint[C, P, R]) send(ctx context.Context, tok *token, method Method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	if tok == nil {
		return ap.do(ctx, method, url, body, headers)
	}
	defer ap.release(tok)
	resp, err := ap.do(ctx, method, url, body, headers)
	if err != nil {
		tok.cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: tok.cancel}
	return resp, nil
}

func (ap *AccessPoint[C, P, R]) do(ctx context.Context, method Method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(method), url, rd)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	return ap.doer.Do(httpReq)
}

// headers merges Content-Type, endpoint headers and per-call headers, later
// sources winning. Names are canonicalized so that differently cased names
// of one header collapse into a single entry.
func (ap *AccessPoint[C, P, R]) headers(c C, call map[string]string) map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	for k, v := range ap.spec.Headers(c) {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range call {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

// adjust applies Spec.Adjust, keeping e when it returns nil.
func (ap *AccessPoint[C, P, R]) adjust(c C, e *apierr.Error) *apierr.Error {
	if a := ap.spec.Adjust(c, e); a != nil {
		return a
	}
	return e
}

// acquire derives the timed context of a call and installs its token in the
// slot, cancelling the token it replaces. Both happen under one lock, so the
// most recent acquire always owns the slot.
func (ap *AccessPoint[C, P, R]) acquire(ctx context.Context, timeout time.Duration, log *slog.Logger) (context.Context, *token) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	tok := &token{cancel: cancel}
	ap.mu.Lock()
	prev := ap.inflight
	ap.inflight = tok
	ap.mu.Unlock()
	if prev != nil {
		prev.cancel()
		log.Debug("accesspoint: previous call cancelled")
	}
	return callCtx, tok
}

// drop gives up tok without sending. A nil tok is ignored.
func (ap *AccessPoint[C, P, R]) drop(tok *token) {
	if tok == nil {
		return
	}
	ap.release(tok)
	tok.cancel()
}

// release clears the slot if it still holds tok.
func (ap *AccessPoint[C, P, R]) release(tok *token) {
	ap.mu.Lock()
	if ap.inflight == tok {
		ap.inflight = nil
	}
	ap.mu.Unlock()
}

// Cancel aborts the outstanding timed call, if any. It reports whether there
// was one.
func (ap *AccessPoint[C, P, R]) Cancel() bool {
	ap.mu.Lock()
	prev := ap.inflight
	ap.inflight = nil
	ap.mu.Unlock()
	if prev == nil {
		return false
	}
	prev.cancel()
	return true
}

// Pending reports whether a timed call currently holds the slot.
func (ap *AccessPoint[C, P, R]) Pending() bool {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.inflight != nil
}

func (ap *AccessPoint[C, P, R]) settle(method Method, status int, err error, start time.Time) {
	if len(ap.observers) == 0 {
		return
	}
	out := Outcome{
		Endpoint: ap.name,
		Method:   method,
		Status:   status,
		Duration: time.Since(start),
	}
	if err != nil {
		out.Code = apierr.CodeUnknown
		if e, ok := apierr.As(err); ok {
			out.Code = e.Code
		}
	}
	for _, obs := range ap.observers {
		obs.ObserveCall(out)
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func headerNames(h map[string]string) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
