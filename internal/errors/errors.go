package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes of a pruning run
type ErrorCode string

const (
	// InputInvalid indicates a missing manifest path or an empty type name
	InputInvalid ErrorCode = "INPUT_INVALID"
	// TypeNotFound indicates no project in the workspace declares the target type
	TypeNotFound ErrorCode = "TYPE_NOT_FOUND"
	// ManifestUnreadable indicates the solution manifest cannot be read or parsed
	ManifestUnreadable ErrorCode = "MANIFEST_UNREADABLE"
	// OutputWriteFailed indicates the output tree could not be written
	OutputWriteFailed ErrorCode = "OUTPUT_WRITE_FAILED"
	// Cancelled indicates the run was cancelled before any output was written
	Cancelled ErrorCode = "CANCELLED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CheckPath suggests verifying a filesystem path
	CheckPath FixActionType = "check-path"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// PruneError represents a pruning failure with code, message, and suggestions
type PruneError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a PruneError with the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *PruneError {
	return &PruneError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Errorf creates a PruneError with a formatted message and no cause
func Errorf(code ErrorCode, format string, args ...interface{}) *PruneError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *PruneError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PruneError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *PruneError) WithDetails(details interface{}) *PruneError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first PruneError in err's chain,
// or InternalError if there is none.
func CodeOf(err error) ErrorCode {
	var pe *PruneError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	TypeNotFound: {
		{
			Type:        RunCommand,
			Command:     "slnprune types <manifest.sln> --filter=<name>",
			Description: "List the fully-qualified type names declared in the solution",
		},
	},
	ManifestUnreadable: {
		{
			Type:        CheckPath,
			Description: "Verify the solution file exists and is a Visual Studio .sln manifest",
		},
	},
	OutputWriteFailed: {
		{
			Type:        CheckPath,
			Description: "Verify the output directory's parent is writable",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
