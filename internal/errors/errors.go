// Package errors provides error handling for nlq.
//
// This package re-exports github.com/cockroachdb/errors for wrapping,
// hints and inspection, and defines CompileError, the typed failure every
// compilation path returns.
//
// Usage:
//
//	// Create a typed failure
//	return errors.NewCompileError(errors.CodeUnresolvedField, "Feld nicht im Bericht").
//		WithField("ursache")
//
//	// Add hints for users
//	return errors.WithHint(err, "nenne den Bereich, z.B. Cover oder Schaden")
//
//	// Inspect
//	if errors.HasCode(err, errors.CodeUnrecognizedRequest) { ... }
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithMessage = crdb.WithMessage
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
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)
