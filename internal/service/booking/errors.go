package booking

import (
	"errors"
	"fmt"
	"strings"

	"venuebook/backend/internal/availability"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCancellationWindow      = errors.New("cancellation window has passed")
)

// NotFoundError reports an unknown venue, service, staff member or booking.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InputFormatError reports a malformed date or time on a read path.
type InputFormatError struct {
	Field string
	Value string
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// ValidationError carries every business-rule violation found for a request.
type ValidationError struct {
	Violations []availability.Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0].Message
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func validationError(code availability.ViolationCode, msg string) error {
	return &ValidationError{Violations: []availability.Violation{{Code: code, Message: msg}}}
}

// ConflictError means the requested interval is taken. Callers should re-query slots
// rather than treat it as a form error.
type ConflictError struct {
	Reason availability.Reason
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict: %s", e.Reason)
}
