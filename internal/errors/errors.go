package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// BotError is the structured error type used across TreasureBot.
// The code determines category, severity and retryability.
type BotError struct {
	// Code is the unique error code (e.g., "ERR_201_SOURCE_FETCH").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details carries context such as the source or user involved.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	Retryable bool

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *BotError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BotError) Unwrap() error {
	return e.Cause
}

// Is matches another BotError with the same code, so sentinel
// values declared with New can be used with errors.Is.
func (e *BotError) Is(target error) bool {
	t, ok := target.(*BotError)
	return ok && e.Code == t.Code
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *BotError) WithDetail(key, value string) *BotError {
	if e.Details == nil {
		e.Details = make(map[string]string, 1)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the operator hint and returns the error for chaining.
func (e *BotError) WithSuggestion(suggestion string) *BotError {
	e.Suggestion = suggestion
	return e
}

// New creates a BotError. Category, severity and the retryable flag are derived from code.
func New(code string, message string, cause error) *BotError {
	return &BotError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a BotError from an existing error, reusing its message.
// Returns nil when err is nil.
func Wrap(code string, err error) *BotError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a fatal configuration error.
func ConfigError(message string, cause error) *BotError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// MissingConfig reports a required configuration key that was not supplied.
func MissingConfig(keys ...string) *BotError {
	e := New(ErrCodeConfigMissing, fmt.Sprintf("missing required configuration: %s", strings.Join(keys, ", ")), nil)
	return e.WithSuggestion("set the values in treasurebot.yaml, a .env file or the environment")
}

// SourceError reports a source that could not be fetched. The build skips it.
func SourceError(source string, cause error) *BotError {
	return New(ErrCodeSourceFetch, fmt.Sprintf("failed to read source %q", source), cause).
		WithDetail("source", source)
}

// RefreshError reports a build attempt that produced no snapshot.
func RefreshError(message string, cause error) *BotError {
	return New(ErrCodeRefreshFailed, message, cause)
}

// NetworkError creates a retryable transport error.
func NetworkError(message string, cause error) *BotError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a request validation error.
func ValidationError(message string, cause error) *BotError {
	return New(ErrCodeBadRequest, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *BotError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first BotError in err's chain.
func As(err error) (*BotError, bool) {
	var be *BotError
	if stderrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsRetryable reports whether any BotError in the chain is retryable.
func IsRetryable(err error) bool {
	be, ok := As(err)
	return ok && be.Retryable
}

// IsFatal reports whether the error has fatal severity.
func IsFatal(err error) bool {
	be, ok := As(err)
	return ok && be.Severity == SeverityFatal
}

// GetCode returns the code of the first BotError in the chain, or "".
func GetCode(err error) string {
	if be, ok := As(err); ok {
		return be.Code
	}
	return ""
}

// GetCategory returns the category of the first BotError in the chain, or "".
func GetCategory(err error) Category {
	if be, ok := As(err); ok {
		return be.Category
	}
	return ""
}
