package errs

import (
	"errors"
	"fmt"
)

// TransientError marks a provider failure worth retrying: network errors,
// rate limits, 5xx responses.
type TransientError struct {
	Err error
}

func (t TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", t.Err)
}

func (t TransientError) Unwrap() error {
	return t.Err
}

// PermanentError marks a business rejection that retrying cannot fix:
// domain taken, invalid input, provider refuses the request.
type PermanentError struct {
	Err error
}

func (p PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", p.Err)
}

func (p PermanentError) Unwrap() error {
	return p.Err
}

// DegradedError marks an outcome that is acceptable for the pipeline to
// proceed past, but worth surfacing: SSL not yet issued, propagation not yet
// visible. Recorded as a step warning, never as a step failure.
type DegradedError struct {
	Err error
}

func (d DegradedError) Error() string {
	return fmt.Sprintf("degraded: %v", d.Err)
}

func (d DegradedError) Unwrap() error {
	return d.Err
}

func Transient(format string, args ...any) error {
	return TransientError{Err: fmt.Errorf(format, args...)}
}

func Permanent(format string, args ...any) error {
	return PermanentError{Err: fmt.Errorf(format, args...)}
}

func Degraded(format string, args ...any) error {
	return DegradedError{Err: fmt.Errorf(format, args...)}
}

func IsPermanent(err error) bool {
	var p PermanentError
	return errors.As(err, &p)
}

func IsDegraded(err error) bool {
	var d DegradedError
	return errors.As(err, &d)
}

// Kind names the taxonomy class of an error for step records.
func Kind(err error) string {
	switch {
	case IsPermanent(err):
		return "permanent"
	case IsDegraded(err):
		return "degraded"
	default:
		return "transient"
	}
}
