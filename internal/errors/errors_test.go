package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an underlying error
	cause := errors.New("permission denied")

	// When: wrapping it as a source error
	err := SourceError("Harv's Island", cause)

	// Then: the chain still reaches the cause
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Harv's Island", err.Details["source"])
}

func TestBotError_Error_IncludesCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigMissing, "missing token", "[ERR_101_CONFIG_MISSING] missing token"},
		{"source", ErrCodeSourceFetch, "sheet unreadable", "[ERR_201_SOURCE_FETCH] sheet unreadable"},
		{"query", ErrCodeQueryEmpty, "empty query", "[ERR_401_QUERY_EMPTY] empty query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestBotError_Is_MatchesSentinelByCode(t *testing.T) {
	// Given: a sentinel and a wrapped error with the same code
	sentinel := New(ErrCodeIndexLoading, "database loading", nil)
	wrapped := fmt.Errorf("resolve: %w", New(ErrCodeIndexLoading, "other text", nil))

	// Then: errors.Is matches through the wrap, but not other codes
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, New(ErrCodeQueryEmpty, "", nil)))
}

func TestCategoryAndSeverityFromCode(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigMissing, CategoryConfig, SeverityFatal, false},
		{ErrCodeSourceFetch, CategorySource, SeverityWarning, true},
		{ErrCodeSourceDecode, CategorySource, SeverityError, false},
		{ErrCodeChatSend, CategoryNetwork, SeverityWarning, true},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityInfo, false},
		{ErrCodeRefreshFailed, CategoryInternal, SeverityError, false},
		{ErrCodeIndexLoading, CategoryInternal, SeverityInfo, false},
		{ErrCodeAlreadyRunning, CategoryInternal, SeverityFatal, false},
		{"bogus", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestMissingConfig_ListsKeys(t *testing.T) {
	err := MissingConfig("TWITCH_TOKEN", "TWITCH_CHANNEL")

	assert.Contains(t, err.Message, "TWITCH_TOKEN, TWITCH_CHANNEL")
	assert.True(t, IsFatal(err))
	assert.NotEmpty(t, err.Suggestion)
}

func TestHelpers_WorkThroughWrapping(t *testing.T) {
	// Given: a BotError wrapped by fmt.Errorf
	err := fmt.Errorf("build: %w", SourceError("sheet", errors.New("503")))

	// Then: helpers look through the chain
	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Equal(t, ErrCodeSourceFetch, GetCode(err))
	assert.Equal(t, CategorySource, GetCategory(err))

	// And: plain errors report nothing
	plain := errors.New("plain")
	assert.False(t, IsRetryable(plain))
	assert.Empty(t, GetCode(plain))
	assert.Empty(t, GetCategory(plain))
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}
