// Package mcpfront exposes the vault's read surface as Model Context
// Protocol tools over stdio: mcp.NewTool/s.AddTool registration, a
// per-tool handler of shape
// func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error),
// and JSON-encoded mcp.NewToolResultText responses.
package mcpfront

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atomicobject/moxide/pkg/config"
	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/atomicobject/moxide/pkg/query"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "moxide"

// echoResponse is the echo tool's JSON payload.
type echoResponse struct {
	Message string `json:"message"`
}

// dailyContextResponse is the daily_context_range tool's JSON payload.
type dailyContextResponse struct {
	Days []dailyContextDay `json:"days"`
}

type dailyContextDay struct {
	Date    string `json:"date"`
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Content string `json:"content,omitempty"`
}

// entityContextResponse is the entity_context tool's JSON payload.
type entityContextResponse struct {
	RefID      string `json:"ref_id"`
	Found      bool   `json:"found"`
	Context    string `json:"context,omitempty"`
	Backlinks  int    `json:"backlink_count"`
}

// Front binds the registered tools to a Session's Vault/query engine.
type Front struct {
	sess  *session.Session
	query *query.Engine
	dates *dateparse.Parser
}

// New constructs a Front. dates may be nil, in which case
// daily_context_range returns a "daily notes are not configured" tool
// error.
func New(sess *session.Session, q *query.Engine, dates *dateparse.Parser) *Front {
	return &Front{sess: sess, query: q, dates: dates}
}

// Run starts the session's crawl/watch, registers every tool, and
// serves MCP over stdio until the client disconnects.
func Run(ctx context.Context, root string, cfg *config.Config) error {
	sess := session.New(root, nil, cfg.TokenOptions())
	if err := sess.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Stop()

	dates := dateparse.New(dateparse.Config{Folder: cfg.DailyNotesFolder, Format: cfg.DailyNote})
	res := resolver.New(sess.Vault, dates)
	q := query.New(sess.Vault, res, cfg.ResolverOptions())

	front := New(sess, q, dates)

	s := server.NewMCPServer(serverName, "v1", server.WithToolCapabilities(false))
	front.RegisterAll(s)

	return server.ServeStdio(s)
}

// RegisterAll registers every tool this server exposes.
func (f *Front) RegisterAll(s *server.MCPServer) {
	echoTool := mcp.NewTool("echo",
		mcp.WithDescription("Echo back a message, for connectivity checks."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Text to echo back")),
	)
	s.AddTool(echoTool, f.echoHandler())

	dailyTool := mcp.NewTool("daily_context_range",
		mcp.WithDescription("Return the contents of daily notes in a range of dates around today, oldest first. Response: {days:[{date,path,exists,content}]}"),
		mcp.WithNumber("past_days", mcp.Description("Days before today to include (default 5)"), mcp.Min(0)),
		mcp.WithNumber("future_days", mcp.Description("Days after today to include (default 5)"), mcp.Min(0)),
	)
	s.AddTool(dailyTool, f.dailyContextRangeHandler())

	entityTool := mcp.NewTool("entity_context",
		mcp.WithDescription("Return a rendered preview plus up to 100 backlinks for a file, heading, or tag referenceable. Response: {ref_id,found,context,backlink_count}"),
		mcp.WithString("ref_id", mcp.Required(), mcp.Description("Canonical refname: a vault-relative path without .md, \"path.md#Heading\", or \"#tag/name\"")),
	)
	s.AddTool(entityTool, f.entityContextHandler())
}

func (f *Front) echoHandler() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		message, _ := args["message"].(string)
		return jsonResult(echoResponse{Message: message})
	}
}

func (f *Front) dailyContextRangeHandler() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		pastDays := intArg(args, "past_days", 5)
		futureDays := intArg(args, "future_days", 5)

		if f.dates == nil {
			return mcp.NewToolResultError("daily notes are not configured"), nil
		}

		now := time.Now()
		resp := dailyContextResponse{}
		for offset := -pastDays; offset <= futureDays; offset++ {
			day := now.AddDate(0, 0, offset)
			path := f.dates.FilenameFor(day)
			entry := dailyContextDay{Date: day.Format("2006-01-02"), Path: path}
			if pf, ok := f.sess.Vault.File(path); ok {
				entry.Exists = true
				entry.Content = pf.Text
			}
			resp.Days = append(resp.Days, entry)
		}
		return jsonResult(resp)
	}
}

func (f *Front) entityContextHandler() func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		refID, _ := args["ref_id"].(string)
		refID = strings.TrimSpace(refID)
		if refID == "" {
			return mcp.NewToolResultError("ref_id is required"), nil
		}

		targets := f.sess.Vault.QueryByRefname(refID)
		if len(targets) == 0 {
			return jsonResult(entityContextResponse{RefID: refID, Found: false})
		}

		target := targets[0]
		backlinks := f.query.ReferencesOf(target)
		ctxText := f.query.Render(target, query.LLMContextMode)

		return jsonResult(entityContextResponse{
			RefID:     refID,
			Found:     true,
			Context:   ctxText,
			Backlinks: len(backlinks),
		})
	}
}

func jsonResult(payload interface{}) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func intArg(args map[string]interface{}, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
