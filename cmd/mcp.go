package cmd

import (
	"fmt"

	"github.com/atomicobject/moxide/pkg/config"
	"github.com/atomicobject/moxide/pkg/mcpfront"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing the vault's read surface",
	Long: `Run a Model Context Protocol (MCP) server over stdin/stdout, for use
with MCP clients like Claude Desktop or Cursor.

Example MCP client configuration:
{
  "mcpServers": {
    "moxide": {
      "command": "/path/to/moxide",
      "args": ["mcp", "--full-dir-path", "/path/to/vault"]
    }
  }
}`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := requireVaultPath(); err != nil {
		return err
	}
	cfg, err := config.Load(vaultPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := signalContext()
	defer cancel()
	return mcpfront.Run(ctx, vaultPath, cfg)
}
