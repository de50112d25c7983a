package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeValidation represents invalid caller input. This is the
	// only category that crosses the pipeline boundary; everything else
	// is absorbed and degrades to empty results.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeExtraction represents recognizer/LLM errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields.
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping.
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error.
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrValidationFailed is returned when a required request field is missing.
type ErrValidationFailed struct {
	*BaseError
	Field string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid request: %s - %s", field, reason), nil),
		Field:     field,
	}
}

// ErrGraphConnectionFailed is returned when the Neo4j connection fails.
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails.
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, "query failed", err),
		Query:     query,
	}
}

// ErrSessionNotFound is returned when a session has no episodic graph yet.
type ErrSessionNotFound struct {
	*BaseError
	SessionID string
}

func NewSessionNotFound(sessionID string) *ErrSessionNotFound {
	return &ErrSessionNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("session not found: %s", sessionID), nil),
		SessionID: sessionID,
	}
}

// ErrEntityNotFound is returned when an entity lookup matches nothing.
type ErrEntityNotFound struct {
	*BaseError
	Name string
}

func NewEntityNotFound(name string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("entity not found: %s", name), nil),
		Name:      name,
	}
}

// ErrExtractionFailed wraps recognizer failures. Callers treat it as
// an empty extraction, never as a pipeline failure.
type ErrExtractionFailed struct {
	*BaseError
	Strategy string
}

func NewExtractionFailed(strategy string, err error) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("extraction failed: %s", strategy), err),
		Strategy:  strategy,
	}
}

// Category returns the error's type. Embedding BaseError promotes
// this to every concrete error in the package.
func (e *BaseError) Category() ErrorType {
	return e.Type
}

// IsErrorType checks if an error (or anything it wraps) carries the
// given category.
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if c, ok := err.(interface{ Category() ErrorType }); ok {
			return c.Category() == errType
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsValidation reports whether an error is a caller-input validation error.
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}
