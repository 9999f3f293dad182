package lspserver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestToURI_RelPath_RoundTrip(t *testing.T) {
	root := "/vault"
	u := toURI(root, "folder/Note.md")
	require.Equal(t, "folder/Note.md", relPath(root, u))
}

func TestRelPath_OutsideRoot(t *testing.T) {
	u := protocol.DocumentURI(toURI("/other", "Note.md"))
	require.Equal(t, "../other/Note.md", relPath("/vault", u))
}

func TestUtf16ToRune_ASCII(t *testing.T) {
	require.Equal(t, 5, utf16ToRune("hello world", 5))
}

func TestUtf16ToRune_AstralPlane(t *testing.T) {
	// "a" + U+1F600 (2 UTF-16 units) + "b": runes are a,emoji,b at indices 0,1,2;
	// the emoji occupies UTF-16 offsets 1-2, so offset 3 lands on "b".
	line := "a\U0001F600b"
	require.Equal(t, 2, utf16ToRune(line, 3))
}

func TestRuneToUTF16_AstralPlane(t *testing.T) {
	line := "a\U0001F600b"
	require.Equal(t, uint32(3), runeToUTF16(line, 2))
}

func TestUtf16ToRune_PastEnd(t *testing.T) {
	require.Equal(t, 5, utf16ToRune("short", 100))
}

func TestLineAt(t *testing.T) {
	text := "one\ntwo\nthree"
	require.Equal(t, "two", lineAt(text, 1))
	require.Equal(t, "", lineAt(text, 5))
	require.Equal(t, "", lineAt(text, -1))
}
