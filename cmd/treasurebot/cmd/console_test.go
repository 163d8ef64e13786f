package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

func TestConsoleCmd_RequiresTerminal(t *testing.T) {
	// Given: sources but stdout is a buffer
	isolate(t)
	withIslands(t)

	// When: opening the console
	_, err := execute(t, "console")

	// Then: it refuses to draw
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}

func TestConsoleCmd_RequiresSources(t *testing.T) {
	isolate(t)

	_, err := execute(t, "console")

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigMissing, boterrors.GetCode(err))
}
