package aws

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
)

// API error codes mapped into the executor's retry taxonomy. Codes not
// listed here are ClassOther: recorded as Failed without retry.
var errorClasses = map[string]cloudprovider.ErrorClass{
	// Throttling and timeouts: retryable.
	"Throttling":               cloudprovider.ClassTransient,
	"ThrottlingException":      cloudprovider.ClassTransient,
	"RequestThrottled":         cloudprovider.ClassTransient,
	"RequestLimitExceeded":     cloudprovider.ClassTransient,
	"TooManyRequestsException": cloudprovider.ClassTransient,
	"RequestTimeout":           cloudprovider.ClassTransient,
	"ServiceUnavailable":       cloudprovider.ClassTransient,
	"InternalError":            cloudprovider.ClassTransient,

	// Insufficient rights: terminal for this resource.
	"UnauthorizedOperation": cloudprovider.ClassPermission,
	"AccessDenied":          cloudprovider.ClassPermission,
	"AccessDeniedException": cloudprovider.ClassPermission,

	// Resource already in (or moving to) the requested state. The
	// idempotence contract turns these into Success.
	"IncorrectInstanceState":      cloudprovider.ClassAlreadyInState,
	"IncorrectState":              cloudprovider.ClassAlreadyInState,
	"InvalidDBInstanceState":      cloudprovider.ClassAlreadyInState,
	"InvalidDBInstanceStateFault": cloudprovider.ClassAlreadyInState,
}

// wrapErr converts an AWS API error into a classified ProviderError.
// nil passes through so call sites can wrap unconditionally.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		class, ok := errorClasses[ae.ErrorCode()]
		if !ok {
			class = cloudprovider.ClassOther
		}
		return &cloudprovider.ProviderError{
			Class: class,
			Code:  ae.ErrorCode(),
			Op:    op,
			Err:   err,
		}
	}

	return &cloudprovider.ProviderError{
		Class: cloudprovider.ClassOther,
		Code:  "Unknown",
		Op:    op,
		Err:   err,
	}
}
