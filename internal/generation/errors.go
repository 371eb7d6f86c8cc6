package generation

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a generation call failed.
type FailureKind string

const (
	// FailureUnauthorized means the service rejected the credential.
	FailureUnauthorized FailureKind = "unauthorized"
	// FailureService is any other failure reported by the service.
	FailureService FailureKind = "service_error"
	// FailureUnreachable means no usable response arrived.
	FailureUnreachable FailureKind = "unreachable"
)

// User-facing messages per failure kind.
const (
	UnauthorizedMessage = "The provided API Key is invalid. Please check your key."
	ServiceErrorPrefix  = "API Error: "
	UnknownErrorMessage = "An unknown error occurred while generating the report. Please try again."
)

// Error is returned by Client.Generate for every failed call.
type Error struct {
	Kind       FailureKind
	Detail     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("generation %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("generation %s: %s", e.Kind, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewServiceError builds a FailureService error with the given detail.
func NewServiceError(detail string) *Error {
	return &Error{Kind: FailureService, Detail: detail}
}

// KindOf returns the failure kind of err. Errors not produced by this package
// count as unreachable.
func KindOf(err error) FailureKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}

	return FailureUnreachable
}

// Message converts err into text that is safe to show the user.
// Raw error text is only exposed for service errors, whose detail comes from the provider.
func Message(err error) string {
	var genErr *Error
	if !errors.As(err, &genErr) {
		return UnknownErrorMessage
	}

	switch genErr.Kind {
	case FailureUnauthorized:
		return UnauthorizedMessage
	case FailureService:
		return ServiceErrorPrefix + genErr.Detail
	default:
		return UnknownErrorMessage
	}
}
