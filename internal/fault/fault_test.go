package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code and message only",
			err:  New(CodeNoActiveSession, "no checkout in progress"),
			want: "NO_ACTIVE_SESSION: no checkout in progress",
		},
		{
			name: "with entity and ref",
			err:  NotFound("product", "42"),
			want: "NOT_FOUND: product not found (product=42)",
		},
		{
			name: "with entity only",
			err:  &Error{Code: CodeInvalidInput, Message: "price must be positive", Entity: "product"},
			want: "INVALID_INPUT: price must be positive (product)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIs_MatchesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("resolving order: %w", NotFound("order", "CART_42_1000"))

	assert.True(t, Is(err, CodeNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, Is(err, CodeForbidden))
}

func TestIs_NonFaultError(t *testing.T) {
	err := errors.New("plain error")

	assert.False(t, IsNotFound(err))
	assert.Equal(t, Code(""), CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CodeStockExceeded, "only 2 left"))
	assert.Equal(t, CodeStockExceeded, CodeOf(err))
}
