// Package query implements the read-only LSP operations that run over
// a Vault snapshot: references, hover, document/workspace symbols,
// diagnostics, semantic tokens, code lens, and inlay hints.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atomicobject/moxide/pkg/fuzzy"
	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/vaultindex"
)

// HoverLimits bounds how much content a hover or entity-context render
// includes. Hover mode and LLM-context mode use different limits over
// the same rendering logic.
type HoverLimits struct {
	// K is the max number of backlinks included.
	K int
	// N is the max lines of a full-file preview.
	N int
	// M is the max lines following a heading in a heading preview.
	M int
}

// HoverMode is the interactive editor's limit set.
var HoverMode = HoverLimits{K: 20, N: 14, M: 10}

// LLMContextMode is the wider limit set the MCP front-end uses.
var LLMContextMode = HoverLimits{K: 100, N: 200, M: 50}

// Engine answers read-only queries against a Vault.
type Engine struct {
	vault    *vaultindex.Vault
	resolver *resolver.Resolver
	opts     resolver.Options
}

// New constructs an Engine.
func New(vault *vaultindex.Vault, res *resolver.Resolver, opts resolver.Options) *Engine {
	return &Engine{vault: vault, resolver: res, opts: opts}
}

// ReferenceableAt returns the Referenceable "under the cursor": a
// Reference occurrence resolved to its target takes priority (clicking
// inside a link asks "what points here"), then a same-file
// Referenceable definition (a heading line, a tag occurrence, a block
// anchor), and finally the file's own File referenceable as a default
// when the cursor covers neither.
func (e *Engine) ReferenceableAt(path string, pos model.Pos) (model.Referenceable, bool) {
	pf, ok := e.vault.File(path)
	if !ok {
		return model.Referenceable{}, false
	}

	for _, ref := range pf.References {
		if contains(ref.Range, pos) {
			targets := e.resolver.Resolve(ref, e.opts)
			if len(targets) > 0 {
				return targets[0], true
			}
		}
	}

	for _, r := range pf.Referenceables {
		if r.Kind != model.KindFile && contains(r.Range, pos) {
			return r, true
		}
	}

	for _, r := range pf.Referenceables {
		if r.Kind == model.KindFile {
			return r, true
		}
	}
	return model.Referenceable{}, false
}

// References returns every reference that resolves to the
// Referenceable under the cursor, sorted by source-file mtime
// descending.
func (e *Engine) References(path string, pos model.Pos) []model.Location {
	target, ok := e.ReferenceableAt(path, pos)
	if !ok {
		return nil
	}
	return e.ReferencesOf(target)
}

// ReferencesOf returns every reference in the vault that resolves to
// target, sorted by source-file mtime descending (ties broken by path
// then range, for deterministic repeated calls).
func (e *Engine) ReferencesOf(target model.Referenceable) []model.Location {
	var locs []model.Location
	e.vault.IterateReferences(func(ref model.Reference) {
		for _, t := range e.resolver.Resolve(ref, e.opts) {
			if t.Kind == target.Kind && t.Refname == target.Refname {
				locs = append(locs, model.Location{Path: ref.Path, Range: ref.Range})
				return
			}
		}
	})

	sort.SliceStable(locs, func(i, j int) bool {
		ti, _ := e.vault.FileModTime(locs[i].Path)
		tj, _ := e.vault.FileModTime(locs[j].Path)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if locs[i].Path != locs[j].Path {
			return locs[i].Path < locs[j].Path
		}
		return rangeLess(locs[i].Range, locs[j].Range)
	})
	return locs
}

// Definition resolves the reference under the cursor to its target
// location (the first resolved referenceable's own definition range).
func (e *Engine) Definition(path string, pos model.Pos) (model.Location, bool) {
	pf, ok := e.vault.File(path)
	if !ok {
		return model.Location{}, false
	}
	for _, ref := range pf.References {
		if !contains(ref.Range, pos) {
			continue
		}
		targets := e.resolver.Resolve(ref, e.opts)
		if len(targets) == 0 {
			return model.Location{}, false
		}
		t := targets[0]
		return model.Location{Path: t.Path, Range: t.Range}, true
	}
	return model.Location{}, false
}

// Hover renders a markdown preview of the referenceable under the
// cursor plus its ordered backlinks, under the given limits.
func (e *Engine) Hover(path string, pos model.Pos, limits HoverLimits) (string, bool) {
	target, ok := e.ReferenceableAt(path, pos)
	if !ok {
		return "", false
	}
	return e.Render(target, limits), true
}

// Render builds the hover/entity-context markdown body for a
// referenceable: its own content preview followed by up to K ordered
// backlinks, each with one line of surrounding context.
func (e *Engine) Render(target model.Referenceable, limits HoverLimits) string {
	var b strings.Builder
	b.WriteString(e.preview(target, limits.N, limits.M))

	backlinks := e.ReferencesOf(target)
	if len(backlinks) > limits.K {
		backlinks = backlinks[:limits.K]
	}
	if len(backlinks) > 0 {
		b.WriteString("\n\n---\n")
		for _, loc := range backlinks {
			b.WriteString(fmt.Sprintf("\n- %s: %s", loc.Path, e.contextLine(loc)))
		}
	}
	return b.String()
}

func (e *Engine) preview(target model.Referenceable, maxFileLines, maxFollowingLines int) string {
	pf, ok := e.vault.File(target.Path)
	if !ok {
		return fmt.Sprintf("*%s (unresolved)*", target.Refname)
	}
	lines := strings.Split(pf.Text, "\n")

	if target.Kind != model.KindHeading {
		return joinTruncated(lines, 0, maxFileLines)
	}

	start := target.Range.Start.Line
	return joinTruncated(lines, start, maxFollowingLines+1)
}

func (e *Engine) contextLine(loc model.Location) string {
	pf, ok := e.vault.File(loc.Path)
	if !ok {
		return ""
	}
	lines := strings.Split(pf.Text, "\n")
	if loc.Range.Start.Line < 0 || loc.Range.Start.Line >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[loc.Range.Start.Line])
}

func joinTruncated(lines []string, start, count int) string {
	if start >= len(lines) {
		return ""
	}
	end := start + count
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// DocumentSymbols builds a hierarchical outline of path's headings
// (levels 1..6), nesting each heading under the nearest preceding
// heading of a lower level.
func (e *Engine) DocumentSymbols(path string) []model.Symbol {
	pf, ok := e.vault.File(path)
	if !ok {
		return nil
	}

	type frame struct {
		level int
		sym   *model.Symbol
	}

	var roots []model.Symbol
	var stack []frame

	for _, r := range pf.Referenceables {
		if r.Kind != model.KindHeading {
			continue
		}
		sym := model.Symbol{Kind: model.SymbolHeading, Name: r.HeadingText, Location: model.Location{Path: path, Range: r.Range}}

		for len(stack) > 0 && stack[len(stack)-1].level >= r.HeadingLevel {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, sym)
			stack = append(stack, frame{level: r.HeadingLevel, sym: &roots[len(roots)-1]})
		} else {
			parent := stack[len(stack)-1].sym
			parent.Children = append(parent.Children, sym)
			stack = append(stack, frame{level: r.HeadingLevel, sym: &parent.Children[len(parent.Children)-1]})
		}
	}
	return roots
}

// WorkspaceSymbols returns every file, heading, and tag whose name
// fuzzy-matches query.
func (e *Engine) WorkspaceSymbols(query string) []model.Symbol {
	var cands []fuzzy.Candidate
	index := make(map[string]model.Symbol)

	add := func(kind model.SymbolKind, name string, loc model.Location) {
		key := fmt.Sprintf("%d|%s|%s|%d", kind, loc.Path, name, loc.Range.Start.Line)
		index[key] = model.Symbol{Kind: kind, Name: name, Location: loc}
		cands = append(cands, fuzzy.Candidate{Text: name, ID: key})
	}

	for _, r := range e.vault.FileReferenceables() {
		add(model.SymbolFile, r.Refname, model.Location{Path: r.Path, Range: r.Range})
	}
	for _, r := range e.vault.AllHeadings() {
		add(model.SymbolHeading, r.HeadingText, model.Location{Path: r.Path, Range: r.Range})
	}
	for _, r := range e.vault.AllTagReferenceables() {
		add(model.SymbolTag, r.Refname, model.Location{Path: r.Path, Range: r.Range})
	}

	matches := fuzzy.Rank(query, cands)
	out := make([]model.Symbol, 0, len(matches))
	for _, m := range matches {
		out = append(out, index[m.ID])
	}
	return out
}

// Diagnostics returns one diagnostic per unresolved reference in path.
func (e *Engine) Diagnostics(path string) []model.Diagnostic {
	pf, ok := e.vault.File(path)
	if !ok {
		return nil
	}
	var out []model.Diagnostic
	for _, ref := range pf.References {
		if ref.Kind == model.RefTag {
			continue
		}
		targets := e.resolver.Resolve(ref, e.opts)
		if allUnresolved(targets) {
			out = append(out, model.Diagnostic{
				Range:   ref.Range,
				Message: fmt.Sprintf("unresolved reference: %s", unresolvedText(ref)),
			})
		}
	}
	return out
}

// SemanticTokens returns a distinct token for every unresolved
// reference in path, independent of whether diagnostics are enabled.
func (e *Engine) SemanticTokens(path string) []model.SemanticToken {
	pf, ok := e.vault.File(path)
	if !ok {
		return nil
	}
	var out []model.SemanticToken
	for _, ref := range pf.References {
		targets := e.resolver.Resolve(ref, e.opts)
		if allUnresolved(targets) {
			out = append(out, model.SemanticToken{Range: ref.Range, TokenType: "unresolvedReference"})
		}
	}
	return out
}

// CodeLens returns "N references" annotations over line 1 (the file
// itself) and over every heading in path.
func (e *Engine) CodeLens(path string) []model.CodeLens {
	pf, ok := e.vault.File(path)
	if !ok {
		return nil
	}

	var out []model.CodeLens
	for _, r := range pf.Referenceables {
		if r.Kind != model.KindFile && r.Kind != model.KindHeading {
			continue
		}
		count := len(e.ReferencesOf(r))
		out = append(out, model.CodeLens{
			Range: r.Range,
			Title: fmt.Sprintf("%d references", count),
		})
	}
	return out
}

// EmbedLength controls how much of an embed's resolved content an
// inlay hint shows.
type EmbedLength struct {
	Full    bool
	Partial int
}

// InlayHints renders one inlay hint per "![[...]]" embed in path,
// showing a truncated preview of what it transcludes.
func (e *Engine) InlayHints(path string, length EmbedLength) []model.InlayHint {
	pf, ok := e.vault.File(path)
	if !ok {
		return nil
	}

	var out []model.InlayHint
	for _, ref := range pf.References {
		if !ref.IsEmbed() {
			continue
		}
		targets := e.resolver.Resolve(ref, e.opts)
		if len(targets) == 0 {
			continue
		}
		label := e.preview(targets[0], embedPreviewLines(length), embedPreviewLines(length))
		out = append(out, model.InlayHint{Pos: ref.Range.End, Label: truncateLabel(label, length)})
	}
	return out
}

func embedPreviewLines(length EmbedLength) int {
	if length.Full {
		return 1 << 20
	}
	if length.Partial <= 0 {
		return 1
	}
	return length.Partial
}

func truncateLabel(label string, length EmbedLength) string {
	if length.Full || length.Partial <= 0 {
		return label
	}
	lines := strings.Split(label, "\n")
	if len(lines) > length.Partial {
		lines = lines[:length.Partial]
	}
	return strings.Join(lines, "\n")
}

func allUnresolved(targets []model.Referenceable) bool {
	if len(targets) == 0 {
		return false
	}
	for _, t := range targets {
		switch t.Kind {
		case model.KindUnresolvedFile, model.KindUnresolvedHeading, model.KindUnresolvedIndexedBlock:
		default:
			return false
		}
	}
	return true
}

func unresolvedText(ref model.Reference) string {
	if ref.TargetHeading != "" {
		return ref.TargetPath + "#" + ref.TargetHeading
	}
	if ref.TargetBlockID != "" {
		return ref.TargetPath + "#^" + ref.TargetBlockID
	}
	return ref.TargetPath
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

func rangeLess(a, b model.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Col < b.Start.Col
}
