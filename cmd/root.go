// Package cmd holds moxide's cobra command tree: a root command that
// serves LSP over stdio by default, and an mcp subcommand that serves
// MCP over stdio instead.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	vaultPath string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:     "moxide",
	Short:   "moxide - LSP and MCP server for Obsidian vaults",
	Version: "v0.1.0",
	Long: `moxide is a language server for Obsidian-flavored Markdown vaults.
It speaks LSP over stdin/stdout by default, for use as an editor's language
server. The mcp subcommand instead exposes the vault's read surface as
Model Context Protocol tools, for use with MCP clients.`,
	RunE: runLSP,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "moxide: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultPath, "full-dir-path", "", "absolute path to the vault directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output on stderr")
	rootCmd.AddCommand(mcpCmd)
}

func requireVaultPath() error {
	if vaultPath == "" {
		return fmt.Errorf("--full-dir-path is required")
	}
	return nil
}
