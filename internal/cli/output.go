package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/roach88/nlq/internal/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Request not compilable or scenarios failed
	ExitCommandError = 2 // Command error (bad flags, config, database)
)

// Error codes for command-level failures. Compilation failures use the
// compiler's own codes (UNRESOLVED_FIELD, ...).
const (
	ErrCodeConfig   = "CONFIG_ERROR"
	ErrCodeUsage    = "USAGE_ERROR"
	ErrCodeDatabase = "DATABASE_ERROR"
	ErrCodeSuite    = "SUITE_ERROR"
	ErrCodeInternal = "INTERNAL"
)

// ExitError represents an error with a specific exit code.
// Commands report the error through the OutputFormatter before returning
// it, so Execute only maps it to the process exit status.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitCommandError if the error is not an
// ExitError (cobra flag and argument errors).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // compile trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // compiler code or ErrCode*
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // field, value, hints
}

// TextRenderer is implemented by payloads with a human-readable form.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any, traceID string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data, TraceID: traceID})
	}
	if r, ok := data.(TextRenderer); ok {
		return r.RenderText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any, traceID string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status:  "error",
			Error:   &CLIError{Code: code, Message: message, Details: details},
			TraceID: traceID,
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if d, ok := details.(*ErrorDetails); ok {
		for _, h := range d.Hints {
			fmt.Fprintf(w, "  Hinweis: %s\n", h)
		}
		if f.Verbose && (d.Field != "" || d.Value != "") {
			fmt.Fprintf(w, "  field=%s value=%q expert=%s\n", d.Field, d.Value, d.Expert)
		}
	} else if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// Compile errors exit with ExitFailure, everything else with fallback.
func (f *OutputFormatter) Fail(err error, fallbackCode string, exit int, traceID string) error {
	code, message, details := describe(err, fallbackCode)
	if errors.CodeOf(err) != "" {
		exit = ExitFailure
	}
	_ = f.Error(code, message, details, traceID)
	return WrapExitError(exit, code, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// ErrorDetails carries the structured part of a compile error.
type ErrorDetails struct {
	Field  string   `json:"field,omitempty"`
	Value  string   `json:"value,omitempty"`
	Expert string   `json:"expert,omitempty"`
	Hints  []string `json:"hints,omitempty"`
}

// describe splits err into code, message and details.
func describe(err error, fallbackCode string) (string, string, any) {
	var ce *errors.CompileError
	if !errors.As(err, &ce) {
		hints := errors.GetAllHints(err)
		if len(hints) == 0 {
			return fallbackCode, err.Error(), nil
		}
		return fallbackCode, err.Error(), &ErrorDetails{Hints: hints}
	}

	d := &ErrorDetails{
		Field:  ce.Field,
		Value:  ce.Value,
		Expert: ce.Expert,
		Hints:  errors.GetAllHints(err),
	}
	if d.Field == "" && d.Value == "" && d.Expert == "" && len(d.Hints) == 0 {
		return string(ce.Code), ce.Message, nil
	}
	return string(ce.Code), ce.Message, d
}

// formatParam renders a bound parameter for text output.
func formatParam(p any) string {
	if s, ok := p.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(p)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
