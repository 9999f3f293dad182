// Package completion implements the completion engine: given the text
// of the current line and a cursor column, it classifies what the user
// is in the middle of typing and returns ranked candidates for it.
package completion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atomicobject/moxide/pkg/codeaction"
	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/atomicobject/moxide/pkg/fuzzy"
	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/vaultindex"
)

// Kind classifies the incomplete construct immediately left of the cursor.
type Kind int

const (
	KindNone Kind = iota
	KindWikiLink
	KindWikiFragment
	KindWikiBlockFragment
	KindWikiUnindexedBlock
	KindMdLink
	KindTag
	KindFootnote
	KindCallout
)

// Item is one completion candidate.
type Item struct {
	Label      string
	InsertText string
	Detail     string
	Score      int

	// SourceEditPath/SourceEdit, when set, is an additional edit the
	// completion requires beyond inserting InsertText at the cursor —
	// used by the unindexed-block context to stamp a generated "^id"
	// onto the line being referenced.
	SourceEditPath string
	SourceEdit     *model.TextEdit
}

// Result is a ranked candidate list for one completion request.
type Result struct {
	Items []Item
	// IsIncomplete marks that typing more characters would change the
	// candidate set — always true for unindexed-block search, since
	// the whole vault is the candidate space.
	IsIncomplete bool
}

var calloutTypes = []string{
	"note", "abstract", "summary", "tldr", "info", "todo", "tip", "hint",
	"important", "success", "check", "done", "question", "help", "faq",
	"warning", "caution", "attention", "failure", "fail", "missing",
	"danger", "error", "bug", "example", "quote", "cite",
}

// Engine computes completions against a Vault.
type Engine struct {
	vault    *vaultindex.Vault
	resolver *resolver.Resolver
	opts     resolver.Options
	dates    *dateparse.Parser // may be nil

	// IncludeMdExtensionWikilink/MdLink control whether a completed
	// link target carries a literal ".md" suffix, per the corresponding
	// configuration keys.
	IncludeMdExtensionWikilink bool
	IncludeMdExtensionMdLink   bool
}

// New constructs an Engine. dates may be nil, in which case daily-date
// phrases are not offered as completion candidates.
func New(vault *vaultindex.Vault, res *resolver.Resolver, opts resolver.Options, dates *dateparse.Parser) *Engine {
	return &Engine{vault: vault, resolver: res, opts: opts, dates: dates}
}

// Complete classifies the text immediately left of the cursor on
// lineText and returns ranked candidates for it. Tag completions are
// returned whether or not the cursor sits inside a fenced or inline
// code span; neither Complete nor the LSP server's completion handler
// filters them by the tags_in_codeblocks setting.
func (e *Engine) Complete(path, lineText string, col int) Result {
	kind, partial, filePart := detect(lineText, col)
	switch kind {
	case KindWikiLink:
		return e.completeLinkTargets(partial, e.IncludeMdExtensionWikilink)
	case KindMdLink:
		return e.completeLinkTargets(partial, e.IncludeMdExtensionMdLink)
	case KindWikiFragment:
		return e.completeHeadingFragment(path, filePart, partial)
	case KindWikiBlockFragment:
		return e.completeBlockFragment(path, filePart, partial)
	case KindWikiUnindexedBlock:
		return e.completeUnindexedBlock(partial)
	case KindTag:
		return e.completeTag(partial)
	case KindFootnote:
		return e.completeFootnote(path, partial)
	case KindCallout:
		return e.completeCallout(partial)
	default:
		return Result{}
	}
}

func (e *Engine) completeLinkTargets(query string, includeMdExtension bool) Result {
	var cands []fuzzy.Candidate
	for _, r := range e.vault.FileReferenceables() {
		cands = append(cands, fuzzy.Candidate{Text: r.Refname, ID: r.Refname})
	}
	for _, pair := range e.vault.AliasPairs() {
		cands = append(cands, fuzzy.Candidate{Text: pair[0], ID: strings.TrimSuffix(pair[1], ".md")})
	}
	if e.dates != nil && query != "" {
		if t, ok := e.dates.ParsePhrase(query, time.Now()); ok {
			cands = append(cands, fuzzy.Candidate{Text: query, ID: strings.TrimSuffix(e.dates.FilenameFor(t), ".md")})
		}
	}

	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		insert := m.ID
		if includeMdExtension {
			insert += ".md"
		}
		return Item{Label: m.Text, InsertText: insert, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) completeHeadingFragment(sourcePath, filePart, query string) Result {
	path := e.resolveFilePart(sourcePath, filePart)
	cands := make([]fuzzy.Candidate, 0)
	for _, h := range e.vault.HeadingsIn(path) {
		cands = append(cands, fuzzy.Candidate{Text: h.HeadingText, ID: h.HeadingText})
	}
	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		return Item{Label: m.Text, InsertText: m.ID, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) completeBlockFragment(sourcePath, filePart, query string) Result {
	path := e.resolveFilePart(sourcePath, filePart)
	cands := make([]fuzzy.Candidate, 0)
	for _, b := range e.vault.BlocksIn(path) {
		cands = append(cands, fuzzy.Candidate{Text: b.BlockID, ID: b.BlockID})
	}
	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		return Item{Label: "^" + m.Text, InsertText: m.ID, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) completeUnindexedBlock(query string) Result {
	lines := e.vault.AllLines()
	cands := make([]fuzzy.Candidate, len(lines))
	for i, l := range lines {
		cands[i] = fuzzy.Candidate{Text: l.Text, ID: strconv.Itoa(i)}
	}

	matches := fuzzy.Rank(query, cands)
	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		idx, _ := strconv.Atoi(m.ID)
		l := lines[idx]
		id := codeaction.GenerateBlockID(func(candidate string) bool {
			return len(e.vault.QueryByRefname(l.Path+"#^"+candidate)) > 0
		})
		lineEnd := model.Pos{Line: l.Line, Col: len([]rune(l.Text))}
		items = append(items, Item{
			Label:          l.Text,
			InsertText:     fmt.Sprintf("[[%s#^%s]]", strings.TrimSuffix(l.Path, ".md"), id),
			Score:          m.Score,
			SourceEditPath: l.Path,
			SourceEdit:     &model.TextEdit{Range: model.Range{Start: lineEnd, End: lineEnd}, NewText: " ^" + id},
		})
	}
	sortItems(items)
	return Result{Items: items, IsIncomplete: true}
}

func (e *Engine) completeTag(query string) Result {
	names := e.vault.AllTagNames()
	cands := make([]fuzzy.Candidate, len(names))
	for i, n := range names {
		cands[i] = fuzzy.Candidate{Text: n, ID: n}
	}
	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		return Item{Label: "#" + m.Text, InsertText: m.ID, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) completeFootnote(path, query string) Result {
	defs := e.vault.FootnotesIn(path)
	cands := make([]fuzzy.Candidate, len(defs))
	for i, d := range defs {
		cands[i] = fuzzy.Candidate{Text: d.FootnoteLabel, ID: d.FootnoteLabel}
	}
	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		return Item{Label: "^" + m.Text, InsertText: m.ID, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) completeCallout(query string) Result {
	cands := make([]fuzzy.Candidate, len(calloutTypes))
	for i, c := range calloutTypes {
		cands[i] = fuzzy.Candidate{Text: c, ID: c}
	}
	items := itemsFromMatches(fuzzy.Rank(query, cands), func(m fuzzy.Match) Item {
		return Item{Label: m.Text, InsertText: m.ID, Score: m.Score}
	})
	sortItems(items)
	return Result{Items: items}
}

func (e *Engine) resolveFilePart(sourcePath, filePart string) string {
	if filePart == "" {
		return sourcePath
	}
	for _, t := range e.resolver.ResolveTarget(sourcePath, filePart, "", "", e.opts) {
		if t.Kind == model.KindFile {
			return t.Path
		}
	}
	return filePart
}

func itemsFromMatches(matches []fuzzy.Match, build func(fuzzy.Match) Item) []Item {
	items := make([]Item, len(matches))
	for i, m := range matches {
		items[i] = build(m)
	}
	return items
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Label < items[j].Label
	})
}

// detect classifies the incomplete construct ending at column col of
// line (col is a rune index, matching model.Pos).
func detect(line string, col int) (kind Kind, partial, filePart string) {
	runes := []rune(line)
	if col > len(runes) {
		col = len(runes)
	}
	if col < 0 {
		col = 0
	}
	left := string(runes[:col])

	if idx := lastUnclosed(left, "[^", "]"); idx >= 0 {
		return KindFootnote, left[idx+2:], ""
	}

	if idx := lastMdLinkOpen(left); idx >= 0 {
		return KindMdLink, left[idx:], ""
	}

	if idx := lastUnclosed(left, "[[", "]]"); idx >= 0 {
		inner := left[idx+2:]
		if strings.HasPrefix(inner, " ") {
			return KindWikiUnindexedBlock, strings.TrimLeft(inner, " "), ""
		}
		if hIdx := strings.Index(inner, "#"); hIdx >= 0 {
			fp := inner[:hIdx]
			frag := inner[hIdx+1:]
			if strings.HasPrefix(frag, "^") {
				return KindWikiBlockFragment, strings.TrimPrefix(frag, "^"), fp
			}
			return KindWikiFragment, frag, fp
		}
		return KindWikiLink, inner, ""
	}

	trimmed := strings.TrimLeft(left, " \t")
	if strings.HasPrefix(trimmed, ">") {
		rest := strings.TrimLeft(strings.TrimPrefix(trimmed, ">"), " ")
		if idx := lastUnclosed(rest, "[!", "]"); idx >= 0 {
			return KindCallout, rest[idx+2:], ""
		}
	}

	if idx := lastTagStart(left); idx >= 0 {
		return KindTag, left[idx+1:], ""
	}

	return KindNone, "", ""
}

// lastUnclosed finds the last occurrence of open in s that open has not
// yet been closed by close, i.e. the construct is still being typed.
func lastUnclosed(s, open, close string) int {
	idx := strings.LastIndex(s, open)
	if idx < 0 {
		return -1
	}
	if strings.Contains(s[idx+len(open):], close) {
		return -1
	}
	return idx
}

// lastMdLinkOpen finds the start of an unterminated markdown link
// target: "](partial", where "partial" has no closing ")" yet. Returns
// the index right after "](", or -1.
func lastMdLinkOpen(s string) int {
	idx := strings.LastIndex(s, "](")
	if idx < 0 {
		return -1
	}
	if strings.Contains(s[idx+2:], ")") {
		return -1
	}
	return idx + 2
}

func lastTagStart(s string) int {
	i := len(s)
	for i > 0 && isTagByte(s[i-1]) {
		i--
	}
	if i == 0 || s[i-1] != '#' {
		return -1
	}
	if i-2 >= 0 && isWordByte(s[i-2]) {
		return -1
	}
	return i - 1
}

func isTagByte(b byte) bool {
	return b == '_' || b == '-' || b == '/' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
