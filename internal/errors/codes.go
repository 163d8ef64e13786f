// Package errors provides structured error handling for TreasureBot.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Source errors (spreadsheet, filesystem)
//   - 3XX: Network and chat transport errors
//   - 4XX: Request validation errors
//   - 5XX: Internal and refresh errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration errors. These are fatal at startup.
	CategoryConfig Category = "CONFIG"
	// CategorySource indicates a location source could not be read.
	CategorySource Category = "SOURCE"
	// CategoryNetwork indicates a chat platform or HTTP transport failure.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates a rejected user request.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates refresh or other internal failures.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the process cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the bot keeps running.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is used for expected outcomes surfaced as errors, like usage hints.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigMissing    = "ERR_101_CONFIG_MISSING"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeCredentials      = "ERR_103_CREDENTIALS"
	ErrCodeConfigUnreadable = "ERR_104_CONFIG_UNREADABLE"

	// Source errors (200-299)
	ErrCodeSourceFetch     = "ERR_201_SOURCE_FETCH"
	ErrCodeSourceDecode    = "ERR_202_SOURCE_DECODE"
	ErrCodeSourceNotFound  = "ERR_203_SOURCE_NOT_FOUND"
	ErrCodeSourceRateLimit = "ERR_204_SOURCE_RATE_LIMITED"

	// Network errors (300-399)
	ErrCodeChatConnect    = "ERR_301_CHAT_CONNECT"
	ErrCodeChatSend       = "ERR_302_CHAT_SEND"
	ErrCodeNetworkTimeout = "ERR_303_NETWORK_TIMEOUT"
	ErrCodeControlSocket  = "ERR_304_CONTROL_SOCKET"

	// Validation errors (400-499)
	ErrCodeQueryEmpty = "ERR_401_QUERY_EMPTY"
	ErrCodeNotOwner   = "ERR_402_NOT_OWNER"
	ErrCodeCooldown   = "ERR_403_COOLDOWN"
	ErrCodeBadRequest = "ERR_404_BAD_REQUEST"

	// Internal errors (500-599)
	ErrCodeRefreshFailed  = "ERR_501_REFRESH_FAILED"
	ErrCodeInternal       = "ERR_502_INTERNAL"
	ErrCodeIndexLoading   = "ERR_503_INDEX_LOADING"
	ErrCodeAlreadyRunning = "ERR_504_ALREADY_RUNNING"
)

// categoryFromCode reads the hundreds digit of the code.
func categoryFromCode(code string) Category {
	// "ERR_" prefix, then three digits
	if len(code) < 7 || code[:4] != "ERR_" {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategorySource
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryValidation:
		return SeverityInfo
	}

	switch code {
	case ErrCodeAlreadyRunning:
		return SeverityFatal
	case ErrCodeIndexLoading:
		return SeverityInfo
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an operation failing with code may succeed on a later attempt.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeSourceFetch, ErrCodeSourceRateLimit,
		ErrCodeChatConnect, ErrCodeChatSend, ErrCodeNetworkTimeout:
		return true
	default:
		return false
	}
}
