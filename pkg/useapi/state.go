// Package useapi tracks the state of repeated calls to one access point:
// the last result, the last error and whether a call is in flight.
//
// Reduce is a pure function over State. Caller drives it from real calls
// and notifies subscribers of every change.
package useapi

import "github.com/vebgen/accesskit/pkg/apierr"

// State is the observable state of a Caller.
type State[R any] struct {
	// Result is the last successful result. An error does not clear it.
	Result *R
	// Error is the last error, cleared by the next success.
	Error *apierr.Error
	// Loading is true while a call is in flight.
	Loading bool
	// Called is true once a call settled with a result or an error.
	Called bool
	// AutoTriggerGuard is set by the first Loading action so that the
	// automatic trigger fires at most once.
	AutoTriggerGuard bool
}

// Action is one of Loading, SetResult, SetError or Reset.
type Action interface {
	action()
}

// Loading marks a call as started or abandoned.
type Loading struct{ Value bool }

// SetResult records a successful result.
type SetResult[R any] struct{ Value R }

// SetError records a failed call.
type SetError struct{ Err *apierr.Error }

// Reset restores the initial state.
type Reset struct{}

func (Loading) action()      {}
func (SetResult[R]) action() {}
func (SetError) action()     {}
func (Reset) action()        {}

// Reduce applies a to s. Unknown actions, including a SetResult of another
// result type, leave s unchanged.
func Reduce[R any](s State[R], a Action) State[R] {
	switch a := a.(type) {
	case Reset:
		return State[R]{}
	case Loading:
		s.Loading = a.Value
		s.AutoTriggerGuard = true
	case SetResult[R]:
		v := a.Value
		s.Result = &v
		s.Error = nil
		s.Loading = false
		s.Called = true
	case SetError:
		s.Error = a.Err
		s.Loading = false
		s.Called = true
	}
	return s
}
