package accesspoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vebgen/accesskit/pkg/apierr"
)

// Method is the HTTP method of an access point.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// Timeouts for Request.Timeout.
const (
	// DefaultTimeout applies when Request.Timeout is zero.
	DefaultTimeout = 8 * time.Second

	// NoTimeout disables both the timeout and supersession for a call.
	// Any negative duration has the same effect.
	NoTimeout time.Duration = -1
)

// Request holds the per-call inputs of Call. The caller-defined context is
// passed to Call separately.
type Request[P any] struct {
	// Payload is serialized into the request body; nil sends no body.
	Payload *P

	// PathArgs fills the placeholders of the path pattern.
	PathArgs PathArgs

	// Headers override both the endpoint headers and Content-Type.
	Headers map[string]string

	// Timeout bounds the call. Zero means DefaultTimeout; NoTimeout disables
	// the timeout and leaves other pending calls on the instance untouched.
	Timeout time.Duration
}

func (r Request[P]) timed() bool { return r.Timeout >= 0 }

func (r Request[P]) timeout() time.Duration {
	if r.Timeout == 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// CallInfo describes a call to the post-processing hooks.
type CallInfo[C, P any] struct {
	// ID is unique per call and appears as call_id in log records.
	ID       string
	Context  C
	Payload  *P
	PathArgs PathArgs
	// Headers are the final headers sent with the request.
	Headers map[string]string
	// Status is the response status.
	Status int
}

// Spec declares one endpoint. Path is required; every other nil field falls
// back to the default documented on it.
type Spec[C, P, R any] struct {
	// BaseURL returns the address the path is appended to.
	// Default: the API root given with WithAPIRoot.
	BaseURL func(c C) string

	// Method returns the HTTP method. Default: POST.
	Method func(c C) Method

	// Path returns the path pattern, which may contain {name} placeholders
	// and may or may not start with a slash.
	Path func(c C) string

	// Headers returns endpoint headers. They override Content-Type and are
	// overridden by Request.Headers. Default: none.
	Headers func(c C) map[string]string

	// Body serializes the payload. Default: JSON, or no body for a nil payload.
	Body func(c C, payload *P) ([]byte, error)

	// Allowed reports whether the call may proceed. Default: always.
	Allowed func(c C) bool

	// Result converts a successful JSON response into R.
	// Default: decode the body into R.
	Result func(ctx context.Context, body json.RawMessage, info CallInfo[C, P]) (R, error)

	// Failure converts a non-success JSON response into an error.
	// Default: err-unknown with the response status.
	Failure func(ctx context.Context, resp *http.Response, body json.RawMessage, info CallInfo[C, P]) *apierr.Error

	// Adjust rewrites every classified error before it reaches the caller,
	// e.g. to localize messages. It is not applied to configuration errors
	// nor to err-other. A nil return keeps err. Default: identity.
	Adjust func(c C, err *apierr.Error) *apierr.Error
}

// withDefaults returns a copy of s with nil resolvers replaced.
func (s Spec[C, P, R]) withDefaults(root string) Spec[C, P, R] {
	if s.BaseURL == nil {
		s.BaseURL = func(C) string { return root }
	}
	if s.Method == nil {
		s.Method = func(C) Method { return MethodPost }
	}
	if s.Headers == nil {
		s.Headers = func(C) map[string]string { return nil }
	}
	if s.Body == nil {
		s.Body = JSONBody[C, P]
	}
	if s.Allowed == nil {
		s.Allowed = func(C) bool { return true }
	}
	if s.Result == nil {
		s.Result = DecodeResult[C, P, R]
	}
	if s.Failure == nil {
		s.Failure = UnknownFailure[C, P]
	}
	if s.Adjust == nil {
		s.Adjust = func(_ C, err *apierr.Error) *apierr.Error { return err }
	}
	return s
}

// JSONBody is the default body builder.
func JSONBody[C, P any](_ C, payload *P) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(*payload)
}

// DecodeResult is the default result processor. A body that is valid JSON
// but does not fit R is reported as err-other.
func DecodeResult[C, P, R any](_ context.Context, body json.RawMessage, info CallInfo[C, P]) (R, error) {
	var r R
	if err := json.Unmarshal(body, &r); err != nil {
		return r, apierr.Other(info.Status, fmt.Sprintf("decode response: %v", err))
	}
	return r, nil
}

// UnknownFailure is the default failure processor.
func UnknownFailure[C, P any](_ context.Context, resp *http.Response, _ json.RawMessage, _ CallInfo[C, P]) *apierr.Error {
	return apierr.Unknown(resp.StatusCode)
}

// Fixed is a convenience for resolvers that ignore the context.
func Fixed[C, T any](v T) func(C) T {
	return func(C) T { return v }
}
