package apierr

import "errors"

// Configuration errors. These report programming defects in how an access
// point is declared or called; they are never *Error values and callers are
// not expected to branch on them at runtime.
var (
	ErrBaseURLMissing     = errors.New("accesspoint: base url is not set")
	ErrMissingParam       = errors.New("accesspoint: missing value for path parameter")
	ErrPathPatternMissing = errors.New("accesspoint: path pattern resolver is required")
	ErrBody               = errors.New("accesspoint: cannot build request body")
)

// IsConfig reports whether err is one of the configuration errors.
func IsConfig(err error) bool {
	return errors.Is(err, ErrBaseURLMissing) ||
		errors.Is(err, ErrMissingParam) ||
		errors.Is(err, ErrPathPatternMissing) ||
		errors.Is(err, ErrBody)
}
