package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommand_RequiresVaultPath(t *testing.T) {
	vaultPath = ""
	rootCmd.SetArgs([]string{})
	defer rootCmd.SetArgs([]string{})

	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "--full-dir-path")
}

func TestMcpCommand_RequiresVaultPath(t *testing.T) {
	vaultPath = ""
	rootCmd.SetArgs([]string{"mcp"})
	defer rootCmd.SetArgs([]string{})

	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "--full-dir-path")
}
