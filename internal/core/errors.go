package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeCapacityExceeded = "capacity_exceeded"
	ErrCodeNameEmpty        = "name_empty"
	ErrCodeNameTooLong      = "name_too_long"
	ErrCodeNameReserved     = "name_reserved"
	ErrCodeNameTaken        = "name_taken"
	ErrCodeUnknownCommand   = "unknown_command"
	ErrCodeRateLimited      = "rate_limited"
)

var (
	// ErrCapacityExceeded is returned when every registry slot is occupied.
	ErrCapacityExceeded = coreError(ErrCodeCapacityExceeded, "Server is full")
	ErrNameEmpty        = coreError(ErrCodeNameEmpty, "Name must not be empty")
	ErrNameTooLong      = coreError(ErrCodeNameTooLong, "Name is too long")
	ErrNameReserved     = coreError(ErrCodeNameReserved, "Name is reserved")
	ErrNameTaken        = coreError(ErrCodeNameTaken, "Name is already taken")
	ErrUnknownCommand   = coreError(ErrCodeUnknownCommand, "Unrecognized command")
	ErrRateLimited      = coreError(ErrCodeRateLimited, "Rate limit exceeded, message dropped")

	ErrHubClosed = errors.New("hub closed")
)

// CoreError wraps a code and the human-readable diagnostic sent to the client.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError carrying the same code, so formatted variants
// still satisfy errors.Is against the sentinels above.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func coreErrorf(code, format string, args ...any) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}
