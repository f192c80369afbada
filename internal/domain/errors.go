package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConsentRequired    = errors.New("consent required")
	ErrPrivacyCheckFailed = errors.New("privacy check failed")
	ErrProcessingFailed   = errors.New("document processing failed")
	ErrOracleUnavailable  = errors.New("risk oracle unavailable")
	ErrLockNotAcquired    = errors.New("customer lock not acquired")
)

// InvariantError reports malformed stored data, e.g. an unknown enum value
type InvariantError struct {
	Field string
	Value string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: unknown %s %q", e.Field, e.Value)
}

// IsInvariant reports whether err wraps an InvariantError
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
