package useapi

import (
	"context"

	"github.com/vebgen/accesskit/pkg/apierr"
)

// FormError is the FieldErrors key of errors that concern the whole form
// rather than one field.
const FormError = "FORM_ERROR"

// FieldErrors maps field names, or FormError, to messages. An empty map
// means the submission succeeded.
type FieldErrors map[string]string

// Triggerer is the part of a Caller a Form needs.
type Triggerer[C, P, R any] interface {
	Trigger(ctx context.Context, o Overrides[C, P]) (R, error)
}

// Form submits create and edit forms through a Triggerer.
type Form[C, P, R any] struct {
	Caller Triggerer[C, P, R]
	// Context overrides the caller's default context when set.
	Context *C
	// Validate runs before the call; non-empty errors prevent it.
	Validate func(values P) FieldErrors
	// OnSuccess receives the result. Non-nil errors it returns replace the
	// empty success map.
	OnSuccess func(result R) FieldErrors
}

// Submit sends values as the call payload.
//
// A classified failure becomes a FormError entry carrying its message.
// Other errors, such as a missing path argument, are returned as is.
func (f Form[C, P, R]) Submit(ctx context.Context, values P) (FieldErrors, error) {
	if f.Validate != nil {
		if errs := f.Validate(values); len(errs) > 0 {
			return errs, nil
		}
	}

	r, err := f.Caller.Trigger(ctx, Overrides[C, P]{Context: f.Context, Payload: &values})
	if err != nil {
		e, ok := apierr.As(err)
		if !ok {
			return nil, err
		}
		return FieldErrors{FormError: e.Message}, nil
	}
	if f.OnSuccess != nil {
		if errs := f.OnSuccess(r); errs != nil {
			return errs, nil
		}
	}
	return FieldErrors{}, nil
}
