package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/ir"
)

// TestQuotaEnforcer_WithinLimit tests normal operation within quota.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		err := q.Check("quantity")
		assert.NoError(t, err, "step %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
}

// TestQuotaEnforcer_ExceedsLimit tests quota exceeded error.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check("quantity"))
	}

	err := q.Check("config_amount")
	require.Error(t, err)

	var stepsErr *StepsExceededError
	require.ErrorAs(t, err, &stepsErr)
	assert.Equal(t, "config_amount", stepsErr.Node)
	assert.Equal(t, 6, stepsErr.Steps)
	assert.Equal(t, 5, stepsErr.Limit)
}

// TestStepsExceededError_Error tests error message formatting.
func TestStepsExceededError_Error(t *testing.T) {
	err := &StepsExceededError{
		Node:  "price_unit",
		Steps: 10001,
		Limit: 10000,
	}

	msg := err.Error()
	assert.Contains(t, msg, "price_unit")
	assert.Contains(t, msg, "10001")
	assert.Contains(t, msg, "10000")
}

// TestIsQuotaError_Wrapped tests detection through wrapping.
func TestIsQuotaError_Wrapped(t *testing.T) {
	base := &StepsExceededError{Node: "quantity", Steps: 2, Limit: 1}
	wrapped := fmt.Errorf("flush: %w", base)

	assert.True(t, IsQuotaError(wrapped))
	assert.True(t, IsQuotaError(&Error{Code: ErrCodeQuotaExceeded}))
	assert.False(t, IsQuotaError(NewNotFoundError("x")))
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("l1", "bad %s", "input"), IsValidationError},
		{"not found", NewNotFoundError("l1"), IsNotFound},
		{"cycle", NewCycleError("l1", "l2"), IsCycleError},
		{"depth", NewDepthError("l1", 9, 8), IsDepthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.check(fmt.Errorf("plain")))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := NewCycleError("l1", "l2")
	assert.Equal(t, "CYCLE_DETECTED: linking under l2 would create a cycle (line=l1)", err.Error())
	assert.Equal(t, "l2", err.Details["parent_option_id"])

	noLine := &Error{Code: ErrCodeValidation, Message: "empty batch"}
	assert.Equal(t, "VALIDATION: empty batch", noLine.Error())

	depth := NewDepthError(ir.LineID("l3"), 9, 8)
	assert.Equal(t, "9", depth.Details["depth"])
	assert.Equal(t, "8", depth.Details["max_depth"])
}
