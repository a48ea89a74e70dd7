package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to status codes.
var (
	// ErrNotFound indicates the notification does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrNotFound = errors.New("notification not found")

	// ErrUnauthorized indicates the notification belongs to another user.
	// API layer should map this to HTTP 403 Forbidden.
	ErrUnauthorized = errors.New("notification is owned by another user")

	// ErrAlreadyNotified indicates a notification for the same user, reference
	// and type already exists. The reminder engine treats it as a no-op.
	ErrAlreadyNotified = errors.New("notification already sent")

	// ErrInvalidFilter indicates an unknown list filter.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidFilter = errors.New("invalid notification filter")
)

// NotificationServiceError wraps unexpected errors from the notification
// service with the failing operation.
type NotificationServiceError struct {
	// Operation is the operation that failed (e.g., "create", "mark_read")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for NotificationServiceError.
func (e *NotificationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("notification service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *NotificationServiceError) Unwrap() error {
	return e.Err
}

// wrapError returns service sentinels unchanged and wraps anything else in a
// NotificationServiceError.
func wrapError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrUnauthorized, ErrAlreadyNotified, ErrInvalidFilter} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &NotificationServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
