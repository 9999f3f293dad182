package codeaction

import (
	"fmt"
	"path/filepath"
	"strings"
)

// JoinVaultPath joins a vault root and a vault-relative path, rejecting
// anything that would escape the vault (absolute paths, "../" climbs).
// The LSP server passes every FileOpCreate path through this before
// writing the new file.
func JoinVaultPath(vaultRoot, relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", relativePath)
	}
	cleaned := filepath.Clean(strings.TrimSpace(relativePath))
	cleaned = strings.TrimPrefix(cleaned, string(filepath.Separator))
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("note path cannot be empty")
	}

	absRoot, err := filepath.Abs(vaultRoot)
	if err != nil {
		return "", fmt.Errorf("resolve vault root: %w", err)
	}

	joined := filepath.Join(absRoot, filepath.FromSlash(cleaned))
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve note path: %w", err)
	}

	if absJoined != absRoot && !strings.HasPrefix(absJoined, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("note path escapes vault: %s", relativePath)
	}

	return absJoined, nil
}
