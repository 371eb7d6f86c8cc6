package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when any required input field is empty or whitespace-only.
	ErrMissingField = errors.New("all fields are required")
	// ErrMalformedDate is returned when day/month/year do not form a valid past calendar date.
	ErrMalformedDate = errors.New("invalid date of birth")
)

// User-facing messages for local validation failures.
const (
	MissingFieldMessage  = "Please fill in all the fields."
	MalformedDateMessage = "Please enter a valid date of birth: day 1-31, month 1-12, " +
		"a four-digit year from 1900, and not in the future."
)

// DateError describes which date component failed validation.
type DateError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s: %s %q %s", ErrMalformedDate, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedDate.
func (*DateError) Unwrap() error {
	return ErrMalformedDate
}

// ValidationMessage converts a validation error into the text shown to the user.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return MissingFieldMessage
	case errors.Is(err, ErrMalformedDate):
		return MalformedDateMessage
	default:
		return ""
	}
}

// ValidationKind classifies a validation error for SessionState.
func ValidationKind(err error) ErrorKind {
	if errors.Is(err, ErrMissingField) {
		return ErrorKindMissingField
	}

	return ErrorKindMalformedDate
}
