// Package lspserver binds the query/completion/codeaction/session
// engines to the Language Server Protocol over stdio, following the
// handler-switch shape of lx-lsp's server.go: one goroutine reads
// jsonrpc2 requests and dispatches them by method name, document
// lifecycle and filesystem events serialize through Session, and
// every read-only request runs against a Vault snapshot.
package lspserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atomicobject/moxide/pkg/codeaction"
	"github.com/atomicobject/moxide/pkg/completion"
	"github.com/atomicobject/moxide/pkg/config"
	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/query"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// semanticTokenTypes is the legend advertised for SemanticTokensProvider;
// moxide only ever emits the one token type, for unresolved references.
var semanticTokenTypes = []string{"unresolvedReference"}

// Server is the LSP front-end: it owns a Session (and therefore the
// Vault) plus the read-only engines built on top of it.
type Server struct {
	root string
	cfg  *config.Config

	sess       *session.Session
	dates      *dateparse.Parser
	res        *resolver.Resolver
	query      *query.Engine
	completion *completion.Engine
	codeaction *codeaction.Engine

	conn jsonrpc2.Conn
}

// New wires every engine against a fresh Session rooted at root.
func New(root string, cfg *config.Config) *Server {
	sess := session.New(root, nil, cfg.TokenOptions())
	dates := dateparse.New(dateparse.Config{Folder: cfg.DailyNotesFolder, Format: cfg.DailyNote})
	res := resolver.New(sess.Vault, dates)
	opts := cfg.ResolverOptions()

	comp := completion.New(sess.Vault, res, opts, dates)
	comp.IncludeMdExtensionWikilink = cfg.IncludeMdExtensionWikilink
	comp.IncludeMdExtensionMdLink = cfg.IncludeMdExtensionMdLink

	ca := codeaction.New(sess.Vault, res, opts)
	ca.TitleHeadings = cfg.TitleHeadings
	ca.NewFileFolder = cfg.NewFileFolderPath

	return &Server{
		root:       root,
		cfg:        cfg,
		sess:       sess,
		dates:      dates,
		res:        res,
		query:      query.New(sess.Vault, res, opts),
		completion: comp,
		codeaction: ca,
	}
}

// Run starts the initial crawl and watcher, then serves JSON-RPC over
// stdio until the connection closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.sess.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer s.sess.Stop()

	stream := jsonrpc2.NewStream(struct {
		io.Reader
		io.WriteCloser
	}{os.Stdin, os.Stdout})

	conn := jsonrpc2.NewConn(stream)
	conn.Go(ctx, s.handler())
	s.conn = conn

	<-conn.Done()
	return conn.Err()
}

func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodInitialize:
			var params protocol.InitializeParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.initialize(&params)
			return reply(ctx, result, err)

		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.didOpen(&params)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.didChange(&params)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.didClose(&params)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentCompletion:
			var params protocol.CompletionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.completionAt(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentDefinition:
			var params protocol.DefinitionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.definition(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentReferences:
			var params protocol.ReferenceParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.references(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentHover:
			var params protocol.HoverParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.hover(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentDocumentSymbol:
			var params protocol.DocumentSymbolParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.documentSymbols(&params)
			return reply(ctx, result, nil)

		case protocol.MethodWorkspaceSymbol:
			var params protocol.WorkspaceSymbolParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.workspaceSymbols(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentPrepareRename:
			var params protocol.PrepareRenameParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.prepareRename(&params)
			return reply(ctx, result, err)

		case protocol.MethodTextDocumentRename:
			var params protocol.RenameParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.rename(&params)
			return reply(ctx, result, err)

		case protocol.MethodTextDocumentCodeAction:
			var params protocol.CodeActionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.codeActions(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentSemanticTokensFull:
			var params protocol.SemanticTokensParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.semanticTokens(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentCodeLens:
			var params protocol.CodeLensParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.codeLens(&params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentInlayHint:
			var params protocol.InlayHintParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.inlayHints(&params)
			return reply(ctx, result, nil)

		case protocol.MethodWorkspaceExecuteCommand:
			var params protocol.ExecuteCommandParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.executeCommand(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodWorkspaceDidChangeWatchedFiles:
			return reply(ctx, nil, nil) // the internal watcher already covers this

		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)

		case protocol.MethodExit:
			return nil

		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

func (s *Server) initialize(params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if root := absPath(params.RootURI); root != "" {
		s.root = root
	}

	commands := []string{"jump", "today", "tomorrow", "yesterday", "daily"}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"[", "#", "^", "|", "(", " "},
			},
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			HoverProvider:          s.cfg.Hover,
			DocumentSymbolProvider: true,
			WorkspaceSymbolProvider: true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			CodeActionProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     semanticTokenTypes,
					TokenModifiers: []string{},
				},
				Full: true,
			},
			CodeLensProvider: &protocol.CodeLensOptions{},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: commands,
			},
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				FileOperations: nil,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "moxide"},
	}, nil
}

func (s *Server) didOpen(params *protocol.DidOpenTextDocumentParams) {
	path := relPath(s.root, params.TextDocument.URI)
	s.sess.Open(path, params.TextDocument.Text)
	s.publishDiagnostics(path)
}

func (s *Server) didChange(params *protocol.DidChangeTextDocumentParams) {
	path := relPath(s.root, params.TextDocument.URI)
	pf, ok := s.sess.Vault.File(path)
	text := ""
	if ok {
		text = pf.Text
	}
	for _, change := range params.ContentChanges {
		text = applyContentChange(text, change)
	}
	s.sess.Update(path, text)
	s.publishDiagnostics(path)
}

func (s *Server) didClose(params *protocol.DidCloseTextDocumentParams) {
	path := relPath(s.root, params.TextDocument.URI)
	s.sess.Close(path)
}

// applyContentChange applies one incremental (or full) change event to
// text, converting its LSP range (if any) through the UTF-16 boundary.
func applyContentChange(text string, change protocol.TextDocumentContentChangeEvent) string {
	if change.Range == nil {
		return change.Text
	}
	return applyRangeChange(text, *change.Range, change.Text)
}

// applyRangeChange splices newText into text over the span r names,
// converting r's UTF-16 columns to rune offsets per affected line.
func applyRangeChange(text string, r protocol.Range, newText string) string {
	lines := strings.Split(text, "\n")
	startLine, endLine := int(r.Start.Line), int(r.End.Line)
	if startLine < 0 || startLine >= len(lines) || endLine < 0 || endLine >= len(lines) {
		return text
	}

	startRunes := []rune(lines[startLine])
	startCol := utf16ToRune(lines[startLine], r.Start.Character)
	if startCol > len(startRunes) {
		startCol = len(startRunes)
	}
	endRunes := []rune(lines[endLine])
	endCol := utf16ToRune(lines[endLine], r.End.Character)
	if endCol > len(endRunes) {
		endCol = len(endRunes)
	}

	var b strings.Builder
	for i := 0; i < startLine; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
	}
	b.WriteString(string(startRunes[:startCol]))
	b.WriteString(newText)
	b.WriteString(string(endRunes[endCol:]))
	for i := endLine + 1; i < len(lines); i++ {
		b.WriteString("\n")
		b.WriteString(lines[i])
	}
	return b.String()
}

func (s *Server) publishDiagnostics(path string) {
	if !s.cfg.UnresolvedDiagnostics || s.conn == nil {
		return
	}
	diags := s.query.Diagnostics(path)
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, diagnosticToProtocol(s.sess.Vault, path, d))
	}
	_ = s.conn.Notify(context.Background(), protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         toURI(s.root, path),
		Diagnostics: out,
	})
}

func (s *Server) completionAt(params *protocol.CompletionParams) *protocol.CompletionList {
	path := relPath(s.root, params.TextDocument.URI)
	pf, ok := s.sess.Vault.File(path)
	if !ok {
		return &protocol.CompletionList{}
	}
	line := lineAt(pf.Text, int(params.Position.Line))
	col := utf16ToRune(line, params.Position.Character)

	res := s.completion.Complete(path, line, col)
	items := make([]protocol.CompletionItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, protocol.CompletionItem{
			Label:      it.Label,
			InsertText: it.InsertText,
			Detail:     it.Detail,
		})
	}
	return &protocol.CompletionList{IsIncomplete: res.IsIncomplete, Items: items}
}

func (s *Server) definition(params *protocol.DefinitionParams) []protocol.Location {
	path := relPath(s.root, params.TextDocument.URI)
	pos := posFromProtocol(s.sess.Vault, path, params.Position)
	loc, ok := s.query.Definition(path, pos)
	if !ok {
		return nil
	}
	return []protocol.Location{locationToProtocol(s.root, s.sess.Vault, loc)}
}

func (s *Server) references(params *protocol.ReferenceParams) []protocol.Location {
	path := relPath(s.root, params.TextDocument.URI)
	pos := posFromProtocol(s.sess.Vault, path, params.Position)
	locs := s.query.References(path, pos)
	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationToProtocol(s.root, s.sess.Vault, l))
	}
	return out
}

func (s *Server) hover(params *protocol.HoverParams) *protocol.Hover {
	if !s.cfg.Hover {
		return nil
	}
	path := relPath(s.root, params.TextDocument.URI)
	pos := posFromProtocol(s.sess.Vault, path, params.Position)
	text, ok := s.query.Hover(path, pos, query.HoverMode)
	if !ok {
		return nil
	}
	return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: text}}
}

func (s *Server) documentSymbols(params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol {
	path := relPath(s.root, params.TextDocument.URI)
	syms := s.query.DocumentSymbols(path)
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, symbolToDocumentSymbol(s.sess.Vault, path, sym))
	}
	return out
}

func (s *Server) workspaceSymbols(params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	syms := s.query.WorkspaceSymbols(params.Query)
	out := make([]protocol.SymbolInformation, 0, len(syms))
	for _, sym := range syms {
		out = append(out, symbolToProtocolInformation(s.root, s.sess.Vault, sym))
	}
	return out
}

func (s *Server) prepareRename(params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	path := relPath(s.root, params.TextDocument.URI)
	pos := posFromProtocol(s.sess.Vault, path, params.Position)
	target, ok := s.query.ReferenceableAt(path, pos)
	if !ok {
		return nil, fmt.Errorf("nothing renameable at this position")
	}
	r := rangeToProtocol(s.sess.Vault, target.Path, target.Range)
	return &r, nil
}

func (s *Server) rename(params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	path := relPath(s.root, params.TextDocument.URI)
	pos := posFromProtocol(s.sess.Vault, path, params.Position)
	target, ok := s.query.ReferenceableAt(path, pos)
	if !ok {
		return nil, fmt.Errorf("nothing renameable at this position")
	}

	var edit model.WorkspaceEdit
	switch target.Kind {
	case model.KindFile:
		newPath := strings.TrimSuffix(target.Path, ".md")
		newPath = newPath[:strings.LastIndex(newPath, "/")+1] + params.NewName + ".md"
		edit = s.codeaction.RenameFile(target.Path, newPath)
	case model.KindHeading:
		edit = s.codeaction.RenameHeading(target.Path, target.HeadingText, params.NewName, target.Range, target.HeadingLevel)
	case model.KindTag:
		edit = s.codeaction.RenameTag(strings.TrimPrefix(target.Refname, "#"), params.NewName)
	default:
		return nil, fmt.Errorf("renaming a %s is not supported", target.Kind)
	}

	s.applyFileOps(edit)
	we := workspaceEditToProtocol(s.root, s.sess.Vault, edit)
	return &we, nil
}

// applyFileOps performs the rename/create side effects a WorkspaceEdit
// carries directly on disk — the only place this server touches the
// filesystem for a write the client didn't originate as a text edit.
func (s *Server) applyFileOps(edit model.WorkspaceEdit) {
	for _, op := range edit.FileOps {
		switch op.Kind {
		case model.FileOpRename:
			oldAbs := filepath.Join(s.root, filepath.FromSlash(op.OldPath))
			newAbs := filepath.Join(s.root, filepath.FromSlash(op.NewPath))
			if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
				log.Printf("lspserver: mkdir for rename %s -> %s: %v", op.OldPath, op.NewPath, err)
				continue
			}
			if err := os.Rename(oldAbs, newAbs); err != nil {
				log.Printf("lspserver: rename %s -> %s: %v", op.OldPath, op.NewPath, err)
			}
		case model.FileOpCreate:
			newAbs, err := codeaction.JoinVaultPath(s.root, op.NewPath)
			if err != nil {
				log.Printf("lspserver: create %s: %v", op.NewPath, err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
				log.Printf("lspserver: mkdir for create %s: %v", op.NewPath, err)
				continue
			}
			if err := os.WriteFile(newAbs, []byte(op.Content), 0o644); err != nil {
				log.Printf("lspserver: create %s: %v", op.NewPath, err)
			}
		}
	}
}

func (s *Server) codeActions(params *protocol.CodeActionParams) []protocol.CodeAction {
	path := relPath(s.root, params.TextDocument.URI)
	start := posFromProtocol(s.sess.Vault, path, params.Range.Start)

	var actions []protocol.CodeAction
	for _, d := range s.query.Diagnostics(path) {
		if !contains(d.Range, start) {
			continue
		}
		target := strings.TrimPrefix(d.Message, "unresolved reference: ")
		name := target
		if idx := strings.Index(name, "#"); idx >= 0 {
			name = name[:idx]
		}
		createEdit := s.codeaction.CreateFileForUnresolvedLink("", name)
		s.applyFileOps(createEdit)
		weCreate := workspaceEditToProtocol(s.root, s.sess.Vault, createEdit)
		actions = append(actions, protocol.CodeAction{
			Title: fmt.Sprintf("Create note %q", name),
			Kind:  protocol.QuickFix,
			Edit:  &weCreate,
		})

		appendEdit := s.codeaction.AppendHeadingToFile(path, name)
		weAppend := workspaceEditToProtocol(s.root, s.sess.Vault, appendEdit)
		actions = append(actions, protocol.CodeAction{
			Title: fmt.Sprintf("Append heading %q to this file", name),
			Kind:  protocol.QuickFix,
			Edit:  &weAppend,
		})
	}
	return actions
}

func (s *Server) semanticTokens(params *protocol.SemanticTokensParams) *protocol.SemanticTokens {
	if !s.cfg.SemanticTokens {
		return &protocol.SemanticTokens{Data: []uint32{}}
	}
	path := relPath(s.root, params.TextDocument.URI)
	toks := s.query.SemanticTokens(path)

	data := make([]uint32, 0, len(toks)*5)
	prevLine, prevStart := uint32(0), uint32(0)
	for _, t := range toks {
		p := posToProtocol(s.sess.Vault, path, t.Range.Start)
		length := runeToUTF16(lineAt(mustText(s.sess.Vault, path), t.Range.Start.Line), t.Range.End.Col) - runeToUTF16(lineAt(mustText(s.sess.Vault, path), t.Range.Start.Line), t.Range.Start.Col)

		deltaLine := p.Line - prevLine
		deltaStart := p.Character
		if deltaLine == 0 {
			deltaStart = p.Character - prevStart
		}
		data = append(data, deltaLine, deltaStart, length, 0, 0)
		prevLine, prevStart = p.Line, p.Character
	}
	return &protocol.SemanticTokens{Data: data}
}

func mustText(v interface{ File(string) (*model.ParsedFile, bool) }, path string) string {
	if pf, ok := v.File(path); ok {
		return pf.Text
	}
	return ""
}

func (s *Server) codeLens(params *protocol.CodeLensParams) []protocol.CodeLens {
	path := relPath(s.root, params.TextDocument.URI)
	lenses := s.query.CodeLens(path)
	out := make([]protocol.CodeLens, 0, len(lenses))
	for _, l := range lenses {
		out = append(out, protocol.CodeLens{
			Range:   rangeToProtocol(s.sess.Vault, path, l.Range),
			Command: &protocol.Command{Title: l.Title},
		})
	}
	return out
}

func (s *Server) inlayHints(params *protocol.InlayHintParams) []protocol.InlayHint {
	if !s.cfg.InlayHints || !s.cfg.BlockTransclusion {
		return nil
	}
	path := relPath(s.root, params.TextDocument.URI)
	length := query.EmbedLength{Full: true}
	if tl := config.ParseTransclusionLength(s.cfg.BlockTransclusionLength); !tl.Full {
		length = query.EmbedLength{Partial: tl.Partial}
	}
	hints := s.query.InlayHints(path, length)
	out := make([]protocol.InlayHint, 0, len(hints))
	for _, h := range hints {
		out = append(out, protocol.InlayHint{
			Position: posToProtocol(s.sess.Vault, path, h.Pos),
			Label:    h.Label,
		})
	}
	return out
}

func (s *Server) executeCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
	arg := ""
	if len(params.Arguments) > 0 {
		if str, ok := params.Arguments[0].(string); ok {
			arg = str
		}
	}

	var target string
	switch params.Command {
	case "today":
		target = s.dates.FilenameFor(time.Now())
	case "tomorrow":
		target = s.dates.FilenameFor(time.Now().AddDate(0, 0, 1))
	case "yesterday":
		target = s.dates.FilenameFor(time.Now().AddDate(0, 0, -1))
	case "daily":
		path, ok := s.dates.ResolveDatePhrase(arg)
		if !ok {
			return nil, fmt.Errorf("could not parse date phrase %q", arg)
		}
		target = path
	case "jump":
		target = arg
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}

	if _, ok := s.sess.Vault.File(target); !ok {
		create := s.codeaction.CreateFileForUnresolvedLink("", strings.TrimSuffix(target, ".md"))
		s.applyFileOps(create)
	}
	return map[string]string{"path": target, "uri": string(toURI(s.root, target))}, nil
}

func contains(r model.Range, p model.Pos) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Col < r.Start.Col {
		return false
	}
	if p.Line == r.End.Line && p.Col > r.End.Col {
		return false
	}
	return true
}
