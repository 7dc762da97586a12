// Package errors defines the typed errors the wallet core returns to callers.
//
// Every DomainError belongs to one Category. Only infrastructure errors are
// retryable; the engine never retries on its own.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Category groups errors by how a caller should react to them.
type Category string

const (
	CategoryInput          Category = "input"
	CategoryBusiness       Category = "business"
	CategoryInfrastructure Category = "infrastructure"
	CategoryAbuse          Category = "abuse"
)

type DomainError struct {
	Code     string
	Message  string
	Category Category
	Cause    error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError carrying the same code, so wrapped copies made
// with WithCause or WithMessage still satisfy errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may safely retry the same request.
func (e *DomainError) Retryable() bool {
	return e.Category == CategoryInfrastructure
}

// WithCause returns a copy of e wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// As extracts the DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable reports whether err is a retryable DomainError.
func IsRetryable(err error) bool {
	de, ok := As(err)
	return ok && de.Retryable()
}
