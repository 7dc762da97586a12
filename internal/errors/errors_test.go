package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := ErrEngineUnavailable.WithCause(stderrors.New("connection refused"))

	assert.True(t, stderrors.Is(wrapped, ErrEngineUnavailable))
	assert.False(t, stderrors.Is(wrapped, ErrInsufficientFunds))
	assert.Contains(t, wrapped.Error(), "connection refused")

	outer := fmt.Errorf("transfer: %w", ErrInvalidAmount.WithMessage("amount must be at most %s", "10000"))
	assert.True(t, stderrors.Is(outer, ErrInvalidAmount))
	assert.Equal(t, "transfer: amount must be at most 10000", outer.Error())
}

func TestDomainError_Retryable(t *testing.T) {
	tests := []struct {
		err       *DomainError
		retryable bool
	}{
		{ErrEngineUnavailable, true},
		{ErrInsufficientFunds, false},
		{ErrInvalidAmount, false},
		{ErrRateLimited, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrap: %w", tt.err)))
		})
	}
}

func TestAs(t *testing.T) {
	de, ok := As(fmt.Errorf("x: %w", ErrSelfTransferNotAllowed))
	assert.True(t, ok)
	assert.Equal(t, CategoryBusiness, de.Category)

	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
}
