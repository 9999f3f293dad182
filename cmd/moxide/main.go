// Command moxide is a language server and MCP server for Obsidian-flavored
// Markdown vaults.
package main

import "github.com/atomicobject/moxide/cmd"

func main() {
	cmd.Execute()
}
