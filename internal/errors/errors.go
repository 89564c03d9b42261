// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrExpiryNotFound   = errors.New("expiry not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
	ErrEmptyChain       = errors.New("option chain is empty")
)

// ValidationError reports a snapshot invariant violation. Malformed
// chains are always surfaced, never auto-corrected.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConvergenceError reports an implied-volatility solve that exhausted
// its iteration budget. LastVol and Residual carry the final iterate
// for diagnostics.
type ConvergenceError struct {
	Iterations int
	LastVol    float64
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("implied volatility did not converge after %d iterations (last vol: %.6f, residual: %.6g)",
		e.Iterations, e.LastVol, e.Residual)
}

// NewConvergenceError creates a new ConvergenceError.
func NewConvergenceError(iterations int, lastVol, residual float64) *ConvergenceError {
	return &ConvergenceError{
		Iterations: iterations,
		LastVol:    lastVol,
		Residual:   residual,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
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
