package lspserver

import (
	"testing"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestApplyContentChange_FullSync(t *testing.T) {
	change := protocol.TextDocumentContentChangeEvent{Text: "new body"}
	require.Equal(t, "new body", applyContentChange("old body", change))
}

func TestApplyContentChange_IncrementalSingleLine(t *testing.T) {
	text := "hello world"
	change := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 6},
			End:   protocol.Position{Line: 0, Character: 11},
		},
		Text: "there",
	}
	require.Equal(t, "hello there", applyContentChange(text, change))
}

func TestApplyContentChange_IncrementalMultiLine(t *testing.T) {
	text := "one\ntwo\nthree"
	change := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 1},
			End:   protocol.Position{Line: 2, Character: 2},
		},
		Text: "NEW",
	}
	require.Equal(t, "oNEWree", applyContentChange(text, change))
}

func TestApplyContentChange_InsertAtPoint(t *testing.T) {
	text := "ac"
	change := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 1},
			End:   protocol.Position{Line: 0, Character: 1},
		},
		Text: "b",
	}
	require.Equal(t, "abc", applyContentChange(text, change))
}

func TestContains(t *testing.T) {
	r := model.Range{Start: model.Pos{Line: 1, Col: 2}, End: model.Pos{Line: 1, Col: 8}}
	require.True(t, contains(r, model.Pos{Line: 1, Col: 5}))
	require.False(t, contains(r, model.Pos{Line: 1, Col: 1}))
	require.False(t, contains(r, model.Pos{Line: 2, Col: 0}))
}
