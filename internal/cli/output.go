package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contractcfg/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failures, rejected edits, invalid catalogs
	ExitCommandError = 2 // Command error (invalid paths, unknown contract, etc.)
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
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

// GetExitCode extracts the exit code from an error. Errors that are not
// ExitErrors exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "VALIDATION", etc.
	Message string `json:"message"`           // human-readable message
	LineID  string `json:"line_id,omitempty"` // line the engine rejected, if any
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. Text output uses the String method
// of data when it has one and falls back to YAML.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	switch v := data.(type) {
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.Writer, v.String())
		return err
	case string:
		_, err := fmt.Fprintln(f.Writer, v)
		return err
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = f.Writer.Write(out)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.writeError(&CLIError{Code: code, Message: message, Details: details})
}

func (f *OutputFormatter) writeError(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if e.LineID != "" {
		fmt.Fprintf(f.Writer, "Line: %s\n", e.LineID)
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// Rejected reports an engine operation that failed with the engine's own
// error code and returns the ExitFailure error for it. The forest is left
// as it was before the operation.
func (f *OutputFormatter) Rejected(op string, err error) error {
	e := &CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	var ee *engine.Error
	switch {
	case errors.As(err, &ee):
		e.Code = string(ee.Code)
		e.LineID = string(ee.LineID)
		if len(ee.Details) > 0 {
			e.Details = ee.Details
		}
	case engine.IsQuotaError(err):
		e.Code = string(engine.ErrCodeQuotaExceeded)
	}
	if outErr := f.writeError(e); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, op+" rejected", err)
}

// VerboseLog writes a diagnostic line in verbose mode. It goes to ErrWriter
// so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
