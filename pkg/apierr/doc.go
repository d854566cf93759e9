// Package apierr defines the failure taxonomy of access point calls.
//
// Every classified failure is an *Error carrying one of four codes, chosen by
// the stage at which the call failed:
//
//	err-permission  the authorization predicate refused the call (status 0)
//	err-comm        transport error, cancellation or timeout (status 0)
//	err-other       the response body is not JSON (response status)
//	err-unknown     non-success JSON response (response status)
//
// A separate set of sentinel errors (ErrBaseURLMissing, ErrMissingParam, ...)
// reports configuration defects. Those are returned before any network or
// cancellation side effect and are checked with errors.Is.
package apierr
