// Package errors provides error handling for jflat.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints attached to classified conversion errors
//
// On top of the re-exports it defines the conversion error taxonomy (see kinds.go).
// Every fatal condition the pipeline can hit is a *ConversionError carrying a Kind,
// and stages wrap it with context without ever changing that Kind.
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
//	// Add hints for users
//	return errors.WithHint(err, "convert the file to UTF-8")
//
//	// Classify
//	if errors.IsKind(err, errors.KindParse) {
//	    // malformed input document
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
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel causes wrapped by ConversionError.Err when no underlying error exists.
// Use these with errors.Is() for cause checking; use IsKind for classification.
var (
	// ErrEmptyInput indicates the input document held zero records
	ErrEmptyInput = New("no records in input")

	// ErrUnsupportedFormat indicates an output kind no writer is registered for
	ErrUnsupportedFormat = New("unsupported output format")

	// ErrKeyCollision indicates two distinct paths flattened to the same column
	ErrKeyCollision = New("flattened key collision")

	// ErrRecordShape indicates a top-level record that is not an object
	ErrRecordShape = New("record is not an object")
)
