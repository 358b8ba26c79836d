package tool

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CodeUnknownOperation is returned when no tool is registered under a name.
	CodeUnknownOperation = "UNKNOWN_OPERATION"
	// CodeInvalidArguments is returned when the validation gate rejects an invocation.
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	// CodeToolUnavailable is returned when an external binary or client is missing.
	CodeToolUnavailable = "TOOL_UNAVAILABLE"
	// CodeTimeout is returned when a strategy exceeds its wall-clock bound.
	CodeTimeout = "TIMEOUT"
	// CodeUpstreamFailure is returned when a collaborator answered with a failure.
	CodeUpstreamFailure = "UPSTREAM_FAILURE"
	// CodeInternalFailure is a generic fallback for strategy failures.
	CodeInternalFailure = "INTERNAL_FAILURE"
)

var (
	// ErrUnknownOperation indicates the requested operation is not registered.
	ErrUnknownOperation = errors.New("tool: unknown operation")
	// ErrInvalidArguments indicates the validation gate rejected the arguments.
	ErrInvalidArguments = errors.New("tool: invalid arguments")
	// ErrToolUnavailable indicates a strategy cannot run on this host.
	ErrToolUnavailable = errors.New("tool: unavailable")
	// ErrStrategyTimeout indicates a strategy hit its deadline.
	ErrStrategyTimeout = errors.New("tool: strategy timed out")
)

// ToolError is a structured error that flows from strategies through the
// dispatcher to the protocol adapters without losing its machine-readable code.
type ToolError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return CodeInternalFailure
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds a ToolError. An empty code becomes CodeInternalFailure and an
// empty message falls back to the cause text.
func NewError(code, message string, cause error) *ToolError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = CodeInternalFailure
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{
		Code:      cleanCode,
		Message:   cleanMsg,
		Retryable: cleanCode == CodeTimeout,
		Cause:     cause,
	}
}

// Unavailable reports that a strategy's binary or client is missing.
func Unavailable(what string, cause error) *ToolError {
	if cause == nil {
		cause = ErrToolUnavailable
	} else {
		cause = fmt.Errorf("%w: %w", ErrToolUnavailable, cause)
	}
	return NewError(CodeToolUnavailable, what+" is not available on this system", cause)
}

// Timeout reports that a strategy exceeded its bound.
func Timeout(message string) *ToolError {
	return NewError(CodeTimeout, message, ErrStrategyTimeout)
}

// WithDetails attaches details to err and returns it.
func WithDetails(err *ToolError, details map[string]any) *ToolError {
	if err == nil || len(details) == 0 {
		return err
	}
	if err.Details == nil {
		err.Details = make(map[string]any, len(details))
	}
	for key, value := range details {
		err.Details[key] = value
	}
	return err
}

// AsToolError extracts a *ToolError from err's chain.
func AsToolError(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// ErrorCode returns the ToolError code in err's chain, or "".
func ErrorCode(err error) string {
	if toolErr, ok := AsToolError(err); ok && toolErr != nil {
		return toolErr.Code
	}
	return ""
}

// ErrorCodeOrDefault returns the ToolError code in err's chain, or fallback.
func ErrorCodeOrDefault(err error, fallback string) string {
	if code := ErrorCode(err); strings.TrimSpace(code) != "" {
		return code
	}
	if strings.TrimSpace(fallback) == "" {
		return CodeInternalFailure
	}
	return fallback
}

// ErrorMessage returns the human-facing message of err without its code prefix.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if toolErr, ok := AsToolError(err); ok && strings.TrimSpace(toolErr.Message) != "" {
		return toolErr.Message
	}
	return err.Error()
}
