package mcpfront

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/atomicobject/moxide/pkg/query"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func newTestFront(t *testing.T) (*Front, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Daily Notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Project.md"), []byte("# Project\n\nSome body."), 0o644))

	sess := session.New(root, nil)
	require.NoError(t, sess.Start())
	t.Cleanup(func() { sess.Stop() })

	dates := dateparse.New(dateparse.Config{Folder: "Daily Notes", Format: "2006-01-02"})
	res := resolver.New(sess.Vault, dates)
	q := query.New(sess.Vault, res, resolver.Options{CaseMatching: resolver.CaseSmart, StripMdSuffix: true})

	return New(sess, q, dates), root
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func TestEchoHandler(t *testing.T) {
	f, _ := newTestFront(t)
	res, err := f.echoHandler()(context.Background(), callRequest(map[string]interface{}{"message": "hi"}))
	require.NoError(t, err)

	var payload echoResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
	require.Equal(t, "hi", payload.Message)
}

func TestEntityContextHandler_Found(t *testing.T) {
	f, _ := newTestFront(t)
	res, err := f.entityContextHandler()(context.Background(), callRequest(map[string]interface{}{"ref_id": "Project"}))
	require.NoError(t, err)

	var payload entityContextResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
	require.True(t, payload.Found)
	require.Contains(t, payload.Context, "Project")
}

func TestEntityContextHandler_NotFound(t *testing.T) {
	f, _ := newTestFront(t)
	res, err := f.entityContextHandler()(context.Background(), callRequest(map[string]interface{}{"ref_id": "Nope"}))
	require.NoError(t, err)

	var payload entityContextResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
	require.False(t, payload.Found)
}

func TestDailyContextRangeHandler(t *testing.T) {
	f, _ := newTestFront(t)
	res, err := f.dailyContextRangeHandler()(context.Background(), callRequest(map[string]interface{}{
		"past_days":   float64(1),
		"future_days": float64(1),
	}))
	require.NoError(t, err)

	var payload dailyContextResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
	require.Len(t, payload.Days, 3)
}

func TestIntArg_DefaultsAndTypes(t *testing.T) {
	require.Equal(t, 5, intArg(map[string]interface{}{}, "past_days", 5))
	require.Equal(t, 3, intArg(map[string]interface{}{"past_days": float64(3)}, "past_days", 5))
	require.Equal(t, 5, intArg(map[string]interface{}{"past_days": "bogus"}, "past_days", 5))
}

// textOf extracts the text content of a CallToolResult the way a real
// MCP client would — this only relies on result text survival, not the
// mcp.Content concrete type, because handlers here always produce exactly
// one text content block via mcp.NewToolResultText.
func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", res.Content[0])
	return tc.Text
}
