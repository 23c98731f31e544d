// Package errors provides error handling for ordermon.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrTransient) {
//	    // retry
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is         = crdb.Is
	IsAny      = crdb.IsAny
	As         = crdb.As
	Unwrap     = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll  = crdb.UnwrapAll
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors for the monitor pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfiguration indicates invalid or missing configuration.
	// Configuration errors are fatal to startup and never retried:
	// a bad consumer key will not fix itself on the next attempt.
	ErrConfiguration = New("configuration error")

	// ErrTransient indicates a temporary failure (network error, HTTP 5xx,
	// timeout). Transient errors are retried with bounded backoff; exhausting
	// the retries fails the current cycle but never the process.
	ErrTransient = New("transient error")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrCycleInProgress indicates a manual check was requested while a
	// poll cycle is already running
	ErrCycleInProgress = New("cycle already in progress")
)

// IsConfigurationError checks if an error is or wraps ErrConfiguration
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsTransientError checks if an error is or wraps ErrTransient
func IsTransientError(err error) bool {
	return err != nil && Is(err, ErrTransient)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewConfigurationError creates a configuration error with a formatted message
func NewConfigurationError(format string, args ...interface{}) error {
	return Wrap(ErrConfiguration, Newf(format, args...).Error())
}

// WrapConfiguration wraps an error as a configuration error with context
func WrapConfiguration(err error, context string) error {
	return Wrap(Wrap(ErrConfiguration, err.Error()), context)
}

// NewTransientError creates a transient error with a formatted message
func NewTransientError(format string, args ...interface{}) error {
	return Wrap(ErrTransient, Newf(format, args...).Error())
}

// WrapTransient wraps an error as a transient error with context
func WrapTransient(err error, context string) error {
	return Wrap(Wrap(ErrTransient, err.Error()), context)
}
