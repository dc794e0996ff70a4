package cloudprovider

import "errors"

// ErrorClass buckets provider errors into the retry/record taxonomy used
// by the action executors.
type ErrorClass int

const (
	// ClassOther is any error with no special handling: recorded as
	// Failed without retry.
	ClassOther ErrorClass = iota

	// ClassTransient covers throttling and timeouts: retried with
	// bounded backoff before becoming Failed.
	ClassTransient

	// ClassPermission covers insufficient rights on a resource:
	// recorded as Failed("permission-denied") immediately.
	ClassPermission

	// ClassAlreadyInState means the resource is already in the target
	// state. Treated as Success per the idempotence contract.
	ClassAlreadyInState
)

// ProviderError wraps a provider API error with its classification.
// Cloud implementations map their native error codes into this type so
// the executors stay provider-agnostic.
type ProviderError struct {
	Class ErrorClass
	Code  string
	Op    string
	Err   error
}

func (e *ProviderError) Error() string {
	msg := e.Op + ": " + e.Code
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classify extracts the ErrorClass from err, defaulting to ClassOther.
func Classify(err error) ErrorClass {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ClassOther
}
