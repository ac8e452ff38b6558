package scheduling

import (
	"errors"
	"fmt"
)

// ErrTooFragmented is returned by the splitter when a placement cannot be
// covered within the segment cap.
var ErrTooFragmented = errors.New("scheduling: split exceeds segment cap")

// ValidationError rejects a request before any computation: work-center
// mismatch, non-positive duration, missing or inactive task/machine. It is
// never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "scheduling: " + e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConcurrencyError reports lock contention beyond the configured wait.
// Callers should retry once.
type ConcurrencyError struct {
	Key string
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("scheduling: lock contention on %s: %v", e.Key, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }

// IsConcurrency reports whether err is a ConcurrencyError.
func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}
