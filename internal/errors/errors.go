// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoData           = errors.New("no data in dataset")
	ErrSchemaViolation  = errors.New("input schema violation")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrRunNotFound      = errors.New("backtest run not found")
	ErrDatabaseError    = errors.New("database error")
	ErrTerminalOffline  = errors.New("cannot connect to data terminal")
	ErrRateLimited      = errors.New("rate limited")
	ErrDataNotAvailable = errors.New("data not available")
)

// SchemaError reports a missing or malformed column in the input dataset.
// It is fatal at load time, before the backtest engine ever runs.
type SchemaError struct {
	File    string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation in %s: missing required columns %v", e.File, e.Columns)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(file string, columns []string) *SchemaError {
	return &SchemaError{File: file, Columns: columns}
}

// ParseError reports an unparseable field on a specific row of the input
// dataset.
type ParseError struct {
	File  string
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error %s:%d field %q value %q: %v", e.File, e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parse error %s:%d field %q value %q", e.File, e.Line, e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// DownloadError represents an error from the historical-data terminal API.
type DownloadError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download error [%d] %s: %s: %v", e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("download error [%d] %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(endpoint string, status int, message string, err error) *DownloadError {
	return &DownloadError{Endpoint: endpoint, StatusCode: status, Message: message, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
