package lspserver

import (
	"path/filepath"
	"strings"
	"unicode/utf16"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// absPath returns the filesystem path a DocumentURI names.
func absPath(u protocol.DocumentURI) string {
	return uri.URI(u).Filename()
}

// relPath returns u's path relative to root, using "/" separators, to
// match the vault-relative paths the Vault indexes by.
func relPath(root string, u protocol.DocumentURI) string {
	abs := absPath(u)
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// toURI renders a vault-relative path as a file:// DocumentURI.
func toURI(root, relPath string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(filepath.Join(root, filepath.FromSlash(relPath))))
}

// utf16ToRune converts a zero-based UTF-16 code-unit offset on line
// into the equivalent rune offset, the unit model.Pos works in.
func utf16ToRune(line string, utf16Col uint32) int {
	units := utf16.Encode([]rune(line))
	if int(utf16Col) >= len(units) {
		return len([]rune(line))
	}
	runeCount := 0
	unitCount := uint32(0)
	for _, r := range line {
		if unitCount >= utf16Col {
			break
		}
		if r > 0xFFFF {
			unitCount += 2
		} else {
			unitCount++
		}
		runeCount++
	}
	return runeCount
}

// runeToUTF16 converts a zero-based rune offset on line into the
// equivalent UTF-16 code-unit offset, the unit LSP positions use.
func runeToUTF16(line string, runeCol int) uint32 {
	var unitCount uint32
	runeCount := 0
	for _, r := range line {
		if runeCount >= runeCol {
			break
		}
		if r > 0xFFFF {
			unitCount += 2
		} else {
			unitCount++
		}
		runeCount++
	}
	return unitCount
}

func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}
