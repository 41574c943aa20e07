package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of domain failure. The set is closed; HTTP
// handlers map codes onto response envelopes without exposing internals.
type ErrorCode string

const (
	// ErrCodeValidation marks bad input rejected synchronously, never
	// enqueued.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeEmployeeNoData marks profile synthesis requested for an
	// employee with zero skill history. Not retried.
	ErrCodeEmployeeNoData ErrorCode = "EMPLOYEE_NO_DATA"

	// ErrCodeEmployeeNotFound marks a lookup for an unknown employee.
	ErrCodeEmployeeNotFound ErrorCode = "EMPLOYEE_NOT_FOUND"

	// ErrCodeAICallFailed marks a failed or malformed model response.
	// Callers treat it as "zero results" and continue degraded.
	ErrCodeAICallFailed ErrorCode = "AI_CALL_FAILED"

	// ErrCodeQuotaInterrupted marks a cancelled quota wait. Fatal to the
	// in-flight operation; work must not proceed without a grant.
	ErrCodeQuotaInterrupted ErrorCode = "QUOTA_INTERRUPTED"

	// ErrCodeQueueItemMalformed marks a queue payload that could not be
	// decoded. The item is dropped with a warning, never retried.
	ErrCodeQueueItemMalformed ErrorCode = "QUEUE_ITEM_MALFORMED"

	// ErrCodeInternal is the fallback for unexpected failures.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a domain error carrying a stable code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a domain error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code and message to an underlying error.
func WrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ValidateEvaluation checks an ingestion submission against the bounds in
// types.go. Returns a VALIDATION error naming the offending field.
func ValidateEvaluation(employeeName, content string) error {
	name := strings.TrimSpace(employeeName)
	if len(name) < MinEmployeeNameLength {
		return NewError(ErrCodeValidation, "employee name is required")
	}
	if len(name) > MaxEmployeeNameLength {
		return NewError(ErrCodeValidation, "employee name exceeds %d characters", MaxEmployeeNameLength)
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return NewError(ErrCodeValidation, "evaluation content is required")
	}
	if len(trimmed) < MinContentLength {
		return NewError(ErrCodeValidation, "evaluation content must be at least %d characters", MinContentLength)
	}
	if len(trimmed) > MaxContentLength {
		return NewError(ErrCodeValidation, "evaluation content exceeds %d characters", MaxContentLength)
	}
	return nil
}
