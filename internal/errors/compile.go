package errors

import (
	"fmt"
)

// Code categorizes compilation failures.
type Code string

const (
	// CodeNoMatchingTemplate indicates no report template reached the keyword threshold.
	CodeNoMatchingTemplate Code = "NO_MATCHING_TEMPLATE"

	// CodeUnrecognizedRequest indicates no domain expert accepted the request.
	CodeUnrecognizedRequest Code = "UNRECOGNIZED_REQUEST"

	// CodeUnresolvedField indicates a field keyword has no column in the selected template.
	CodeUnresolvedField Code = "UNRESOLVED_FIELD"

	// CodeMalformedValue indicates a value token does not fit any operator shape.
	CodeMalformedValue Code = "MALFORMED_VALUE"

	// CodeContractViolation indicates GenerateQuery was called for input the expert cannot handle.
	CodeContractViolation Code = "CONTRACT_VIOLATION"

	// CodeInputTooLong indicates the request exceeds the configured input bound.
	CodeInputTooLong Code = "INPUT_TOO_LONG"
)

// CompileError is the typed failure returned by every compilation path.
//
// A compilation that fails never produces SQL; callers receive a nil
// statement together with a CompileError (possibly wrapped with hints).
type CompileError struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Field is the semantic field or keyword involved, if any.
	Field string

	// Value is the offending value token, if any.
	Value string

	// Expert names the domain expert that failed, if any.
	Expert string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("%s: %s (field=%s, value=%q)", e.Code, e.Message, e.Field, e.Value)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	case e.Value != "":
		return fmt.Sprintf("%s: %s (value=%q)", e.Code, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCompileError creates a CompileError with the given code and message.
func NewCompileError(code Code, message string) *CompileError {
	return &CompileError{Code: code, Message: message}
}

// NewCompileErrorf creates a CompileError with a formatted message.
func NewCompileErrorf(code Code, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField sets the field and returns the receiver.
func (e *CompileError) WithField(field string) *CompileError {
	e.Field = field
	return e
}

// WithValue sets the offending value and returns the receiver.
func (e *CompileError) WithValue(value string) *CompileError {
	e.Value = value
	return e
}

// WithExpert sets the expert name and returns the receiver.
func (e *CompileError) WithExpert(name string) *CompileError {
	e.Expert = name
	return e
}

// CodeOf returns the failure code carried by err, or "" if err is not a CompileError.
// Uses As to see through wrapping and hints.
func CodeOf(err error) Code {
	var ce *CompileError
	if As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err carries the given failure code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
