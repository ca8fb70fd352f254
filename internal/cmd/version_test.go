package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{"version"})
		require.NoError(t, err)
	})
	assert.Contains(t, output, "queryforge version dev")
}

func TestVersionCommand_Alias(t *testing.T) {
	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{"v"})
		require.NoError(t, err)
	})
	assert.Contains(t, output, "queryforge version dev")
}

func TestVersionCommand_NoUpdateCheckOnDevBuilds(t *testing.T) {
	// Dev builds skip the release lookup entirely, so nothing lands on
	// stderr even without network access.
	stderr := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err := Execute(context.Background(), []string{"version"})
			require.NoError(t, err)
		})
	})
	assert.Empty(t, stderr)
}
