package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSetupCmd(t *testing.T, args ...string) error {
	t.Helper()
	// cobra always executes from the root command, and flag values persist
	// between executions, so reset --force and route the args through root.
	require.NoError(t, setupCmd.Flags().Set("force", "false"))
	rootCmd.SetArgs(append([]string{"setup"}, args...))
	rootCmd.SetOut(&bytes.Buffer{})
	return rootCmd.Execute()
}

func TestSetupCreatesBothStores(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, runSetupCmd(t, root))

	_, err := os.Stat(filepath.Join(root, tagIndexFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, seqCounterFile))
	assert.NoError(t, err)
}

func TestSetupForceWipesExistingContent(t *testing.T) {
	root := t.TempDir()
	stray := filepath.Join(root, "leftover.txt")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	require.NoError(t, runSetupCmd(t, "--force", root))

	_, err := os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, tagIndexFile))
	assert.NoError(t, err)
}

func TestSetupWithoutForceLeavesUnrelatedContent(t *testing.T) {
	root := t.TempDir()
	kept := filepath.Join(root, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

	require.NoError(t, runSetupCmd(t, root))

	_, err := os.Stat(kept)
	assert.NoError(t, err)
}
