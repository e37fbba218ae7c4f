package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/contractcfg/internal/ir"
)

// Error represents a failure detected while mutating a line forest.
//
// Every Error aborts the whole operation: the engine discards the working
// copy, so the forest observed by callers is left exactly as it was.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// LineID identifies the affected line, if any.
	LineID ir.LineID

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input, e.g. an option spec whose
	// declared parent cannot be resolved.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates a referenced line does not exist.
	ErrCodeNotFound ErrorCode = "LINE_NOT_FOUND"

	// ErrCodeCycleDetected indicates an option link would close a loop.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeDepthExceeded indicates an option tree would grow past the
	// configured maximum depth.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeQuotaExceeded indicates recomputation did not settle within
	// the configured step budget.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.LineID != "" {
		return fmt.Sprintf("%s: %s (line=%s)", e.Code, e.Message, e.LineID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidationError returns true if err is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsNotFound returns true if err reports a missing line.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsCycleError returns true if err reports a cyclic option link.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsDepthError returns true if err reports an option tree that is too deep.
func IsDepthError(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// IsQuotaError returns true if err reports an exhausted step budget.
// Matches both Error with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewValidationError creates an Error for malformed input.
func NewValidationError(id ir.LineID, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
		LineID:  id,
	}
}

// NewNotFoundError creates an Error for a missing line.
func NewNotFoundError(id ir.LineID) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "line does not exist",
		LineID:  id,
	}
}

// NewCycleError creates an Error for a link that would close a loop.
func NewCycleError(id, parent ir.LineID) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("linking under %s would create a cycle", parent),
		LineID:  id,
		Details: map[string]string{"parent_option_id": string(parent)},
	}
}

// NewDepthError creates an Error for a tree deeper than maxDepth.
func NewDepthError(id ir.LineID, depth, maxDepth int) *Error {
	return &Error{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("option depth %d exceeds limit %d", depth, maxDepth),
		LineID:  id,
		Details: map[string]string{
			"depth":     fmt.Sprintf("%d", depth),
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}
