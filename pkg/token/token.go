// Package token implements the line-oriented markdown tokenizer: it
// scans raw file text and emits typed spans for every construct the
// vault needs to index (wikilinks, markdown links, headings, tags,
// indexed blocks, footnotes, and fenced code).
//
// The scanner style (pre-compiled package-level regexes, small focused
// helper functions) follows pkg/obsidian/wikilinks.go and
// pkg/obsidian/tags.go; unlike that CLI code it tracks byte offsets and
// (line, column) positions for every token, since the language server
// needs both (LSP ranges, rename edits expressed as byte splices).
package token

import (
	"regexp"
	"strings"

	"github.com/atomicobject/moxide/pkg/model"
)

// Kind tags the variant of a recognised token.
type Kind int

const (
	KindWikiLink Kind = iota
	KindWikiEmbed
	KindMdLink
	KindHeading
	KindIndexedBlock
	KindTag
	KindFootnoteDefinition
	KindFootnoteReference
	KindFenceStart
	KindFenceEnd
)

// WikiTarget is the parsed interior of a "[[...]]" or "![[...]]" span:
// target#heading|display, target#^block|display, or #heading (current
// file) / #^block (current file).
type WikiTarget struct {
	Path      string // "" means "current file"
	Heading   string // without leading '#'
	BlockID   string // without leading '^'
	Display   string // text after '|', if any
	HasHash   bool
	IsBlock   bool
}

// MdTarget is the parsed interior of a markdown link: [Display](target).
type MdTarget struct {
	Display string
	Path    string
	Heading string
	BlockID string
	HasHash bool
	IsBlock bool
}

// Token is one recognised construct in the source text.
type Token struct {
	Kind Kind
	Span model.Span

	Wiki WikiTarget // KindWikiLink / KindWikiEmbed
	Md   MdTarget   // KindMdLink

	HeadingText  string // KindHeading
	HeadingLevel int    // KindHeading

	BlockID string // KindIndexedBlock

	TagName string // KindTag, without leading '#'

	FootnoteLabel string // KindFootnoteDefinition / KindFootnoteReference
}

var (
	headingRegex     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	blockIDRegex     = regexp.MustCompile(`\s\^([A-Za-z0-9_-]{1,32})\s*$`)
	tagRegex         = regexp.MustCompile(`#[\p{L}_][\p{L}\p{N}_/-]*`)
	footnoteDefRegex = regexp.MustCompile(`^\[\^([^\]]+)\]:`)
	footnoteRefRegex = regexp.MustCompile(`\[\^([^\]]+)\]`)
	fenceRegex       = regexp.MustCompile("^\\s{0,3}```")
	frontmatterLine  = "---"
)

// Options mirrors the config knobs the tokenizer itself must honour.
type Options struct {
	// TagsInCode, if true, still recognises "#tag" inside fenced code
	// blocks. Zero value (false) suppresses them, the historical and
	// default-safe behaviour for callers that don't care.
	TagsInCode bool

	// ReferencesInCode, if true, still recognises wikilinks, markdown
	// links, and footnote references inside fenced code blocks. Zero
	// value (false) suppresses them.
	ReferencesInCode bool
}

// Tokenize scans text under the zero-value Options (fenced code is
// opaque to tags and references) and returns the ordered tokens plus
// the fenced code ranges (by line, inclusive of fence delimiters) and
// any frontmatter aliases found in a leading "---" block.
func Tokenize(text string) (tokens []Token, fences []model.CodeFenceRange, aliases []string) {
	return TokenizeWithOptions(text, Options{})
}

// TokenizeWithOptions is Tokenize with explicit control over whether
// tags and references inside fenced code blocks are recognised.
func TokenizeWithOptions(text string, opts Options) (tokens []Token, fences []model.CodeFenceRange, aliases []string) {
	lines := splitKeepEmpty(text)
	byteOffset := 0
	inFence := false
	fenceStartLine := -1
	inFrontmatter := false
	frontmatterDone := false
	var frontmatterLines []string

	for lineIdx, line := range lines {
		lineStart := byteOffset
		trimmed := strings.TrimRight(line, "\r\n")

		// Frontmatter: only recognised as the very first line(s).
		if lineIdx == 0 && trimmed == frontmatterLine {
			inFrontmatter = true
			byteOffset += len(line) + 1
			continue
		}
		if inFrontmatter {
			if trimmed == frontmatterLine {
				inFrontmatter = false
				frontmatterDone = true
				aliases = parseAliasesYAML(frontmatterLines)
				byteOffset += len(line) + 1
				continue
			}
			frontmatterLines = append(frontmatterLines, trimmed)
			byteOffset += len(line) + 1
			continue
		}
		_ = frontmatterDone

		// Fenced code blocks (```...```), not indented 4-space fences.
		if fenceRegex.MatchString(line) {
			if !inFence {
				inFence = true
				fenceStartLine = lineIdx
				tokens = append(tokens, Token{Kind: KindFenceStart, Span: lineSpan(lineIdx, lineStart, line)})
			} else {
				inFence = false
				fences = append(fences, model.CodeFenceRange{StartLine: fenceStartLine, EndLine: lineIdx})
				tokens = append(tokens, Token{Kind: KindFenceEnd, Span: lineSpan(lineIdx, lineStart, line)})
			}
			byteOffset += len(line) + 1
			continue
		}

		if !inFence {
			// Heading, footnote definition, and block anchor are
			// structural line markers and stay fence-gated regardless
			// of Options: a "```" fence still opens a real code block
			// even when tags/references inside it are recognised.
			if m := headingRegex.FindStringSubmatch(trimmed); m != nil {
				tokens = append(tokens, Token{
					Kind:         KindHeading,
					Span:         lineSpan(lineIdx, lineStart, line),
					HeadingText:  strings.TrimSpace(m[2]),
					HeadingLevel: len(m[1]),
				})
			} else if m := footnoteDefRegex.FindStringSubmatch(trimmed); m != nil {
				tokens = append(tokens, Token{
					Kind:          KindFootnoteDefinition,
					Span:          lineSpan(lineIdx, lineStart, line),
					FootnoteLabel: m[1],
				})
			} else if m := blockIDRegex.FindStringSubmatchIndex(trimmed); m != nil {
				id := trimmed[m[2]:m[3]]
				tokens = append(tokens, Token{
					Kind:    KindIndexedBlock,
					Span:    byteColSpanFor(lineIdx, lineStart, trimmed, m[0], m[1]),
					BlockID: id,
				})
			}
		}

		scanInlineTokens(&tokens, lineIdx, lineStart, trimmed, inFence, opts)

		byteOffset += len(line) + 1
	}

	return tokens, fences, aliases
}

// scanInlineTokens finds wiki-links, embeds, markdown links, tags, and
// footnote references that can occur anywhere within a line. Inside a
// fenced code block (inFence), wiki/md/footnote tokens are only kept
// when opts.ReferencesInCode is set and tags only when
// opts.TagsInCode is set; the scan still runs either way so a
// suppressed link's span still shadows a tag match inside it.
func scanInlineTokens(tokens *[]Token, lineIdx, lineStart int, line string, inFence bool, opts Options) {
	keepRefs := !inFence || opts.ReferencesInCode
	keepTags := !inFence || opts.TagsInCode

	runes := []rune(line)
	n := len(runes)
	i := 0
	// Track byte offset per rune index lazily via substring len.
	byteAt := func(runeIdx int) int { return len(string(runes[:runeIdx])) }

	// suppress tag matches that fall inside a wiki/md link span;
	// collected as we scan. Backtick code spans are not tracked, so a
	// tag inside inline code is still emitted.
	var suppressed []model.ByteRange

	for i < n {
		switch {
		case i+1 < n && runes[i] == '!' && runes[i+1] == '[' && i+2 < n && runes[i+2] == '[':
			if end, target, ok := scanWikiSpan(runes, i+1); ok {
				start := i
				if keepRefs {
					*tokens = append(*tokens, Token{
						Kind: KindWikiEmbed,
						Span: byteColSpan(lineIdx, lineStart, line, byteAt(start), byteAt(end)),
						Wiki: target,
					})
				}
				suppressed = append(suppressed, model.ByteRange{Start: byteAt(start), End: byteAt(end)})
				i = end
				continue
			}
		case i+1 < n && runes[i] == '[' && runes[i+1] == '[':
			if end, target, ok := scanWikiSpan(runes, i); ok {
				start := i
				if keepRefs {
					*tokens = append(*tokens, Token{
						Kind: KindWikiLink,
						Span: byteColSpan(lineIdx, lineStart, line, byteAt(start), byteAt(end)),
						Wiki: target,
					})
				}
				suppressed = append(suppressed, model.ByteRange{Start: byteAt(start), End: byteAt(end)})
				i = end
				continue
			}
		case runes[i] == '[':
			if end, md, ok := scanMdLink(runes, i); ok {
				start := i
				if keepRefs {
					*tokens = append(*tokens, Token{
						Kind: KindMdLink,
						Span: byteColSpan(lineIdx, lineStart, line, byteAt(start), byteAt(end)),
						Md:   md,
					})
				}
				suppressed = append(suppressed, model.ByteRange{Start: byteAt(start), End: byteAt(end)})
				i = end
				continue
			}
			if end, label, ok := scanFootnoteRef(runes, i); ok {
				start := i
				if keepRefs {
					*tokens = append(*tokens, Token{
						Kind:          KindFootnoteReference,
						Span:          byteColSpan(lineIdx, lineStart, line, byteAt(start), byteAt(end)),
						FootnoteLabel: label,
					})
				}
				i = end
				continue
			}
		}
		i++
	}

	if !keepTags {
		return
	}

	// Tags: regex across the whole line, then drop matches overlapping
	// a wiki/markdown link span already found (tags are not matched inside
	// URLs or link targets).
	for _, m := range tagRegex.FindAllStringIndex(line, -1) {
		if overlapsAny(m[0], m[1], suppressed) {
			continue
		}
		if m[0] > 0 && isWordByte(line[m[0]-1]) {
			continue // not a boundary, e.g. "foo#bar"
		}
		*tokens = append(*tokens, Token{
			Kind:    KindTag,
			Span:    byteColSpan(lineIdx, lineStart, line, m[0], m[1]),
			TagName: line[m[0]+1 : m[1]],
		})
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func overlapsAny(start, end int, ranges []model.ByteRange) bool {
	for _, r := range ranges {
		if start < r.End && end > r.Start {
			return true
		}
	}
	return false
}

// scanWikiSpan parses "[[...]]" starting at the first '[' of the pair
// (runes[start] == runes[start+1] == '['). It aborts (ok=false) if a
// nested '[' appears before the closing "]]", or if "]]" never appears
// on this line.
func scanWikiSpan(runes []rune, start int) (end int, target WikiTarget, ok bool) {
	i := start + 2
	n := len(runes)
	var inner []rune
	for i < n {
		if runes[i] == '[' {
			return 0, WikiTarget{}, false
		}
		if i+1 < n && runes[i] == ']' && runes[i+1] == ']' {
			target = parseWikiInner(string(inner))
			return i + 2, target, true
		}
		inner = append(inner, runes[i])
		i++
	}
	return 0, WikiTarget{}, false
}

func parseWikiInner(inner string) WikiTarget {
	display := ""
	body := inner
	if idx := strings.Index(inner, "|"); idx >= 0 {
		body = inner[:idx]
		display = inner[idx+1:]
	}

	var wt WikiTarget
	wt.Display = display

	if idx := strings.Index(body, "#"); idx >= 0 {
		wt.Path = body[:idx]
		wt.HasHash = true
		frag := body[idx+1:]
		if strings.HasPrefix(frag, "^") {
			wt.IsBlock = true
			wt.BlockID = strings.TrimPrefix(frag, "^")
		} else {
			wt.Heading = frag
		}
	} else {
		wt.Path = body
	}
	return wt
}

// scanMdLink parses "[display](target)" starting at the '[' of
// "display". Percent-encoded spaces and "<...>" angle-wrapping are
// permitted in the target.
func scanMdLink(runes []rune, start int) (end int, md MdTarget, ok bool) {
	n := len(runes)
	i := start + 1
	depth := 1
	var display []rune
	for i < n && depth > 0 {
		if runes[i] == '[' {
			return 0, MdTarget{}, false // no nested display brackets
		}
		if runes[i] == ']' {
			depth--
			if depth == 0 {
				break
			}
		}
		display = append(display, runes[i])
		i++
	}
	if depth != 0 || i+1 >= n || runes[i+1] != '(' {
		return 0, MdTarget{}, false
	}
	i += 2
	var target []rune
	for i < n && runes[i] != ')' {
		target = append(target, runes[i])
		i++
	}
	if i >= n {
		return 0, MdTarget{}, false
	}
	end = i + 1

	raw := strings.TrimSpace(string(target))
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	raw = decodePercentSpaces(raw)

	md.Display = string(display)
	if idx := strings.Index(raw, "#"); idx >= 0 {
		md.Path = raw[:idx]
		md.HasHash = true
		frag := raw[idx+1:]
		if strings.HasPrefix(frag, "^") {
			md.IsBlock = true
			md.BlockID = strings.TrimPrefix(frag, "^")
		} else {
			md.Heading = frag
		}
	} else {
		md.Path = raw
	}
	return end, md, true
}

func decodePercentSpaces(s string) string {
	return strings.ReplaceAll(s, "%20", " ")
}

func scanFootnoteRef(runes []rune, start int) (end int, label string, ok bool) {
	n := len(runes)
	if runes[start] != '[' {
		return 0, "", false
	}
	if start+1 >= n || runes[start+1] != '^' {
		return 0, "", false
	}
	i := start + 2
	var lbl []rune
	for i < n && runes[i] != ']' {
		if runes[i] == '[' {
			return 0, "", false
		}
		lbl = append(lbl, runes[i])
		i++
	}
	if i >= n {
		return 0, "", false
	}
	return i + 1, string(lbl), true
}

func lineSpan(lineIdx, lineStart int, line string) model.Span {
	trimmed := strings.TrimRight(line, "\r\n")
	return model.Span{
		Bytes: model.ByteRange{Start: lineStart, End: lineStart + len(trimmed)},
		Range: model.Range{
			Start: model.Pos{Line: lineIdx, Col: 0},
			End:   model.Pos{Line: lineIdx, Col: len([]rune(trimmed))},
		},
	}
}

func byteColSpan(lineIdx, lineStart int, line string, byteStart, byteEnd int) model.Span {
	return model.Span{
		Bytes: model.ByteRange{Start: lineStart + byteStart, End: lineStart + byteEnd},
		Range: model.Range{
			Start: model.Pos{Line: lineIdx, Col: runeColumn(line, byteStart)},
			End:   model.Pos{Line: lineIdx, Col: runeColumn(line, byteEnd)},
		},
	}
}

func byteColSpanFor(lineIdx, lineStart int, line string, byteStart, byteEnd int) model.Span {
	return byteColSpan(lineIdx, lineStart, line, byteStart, byteEnd)
}

func runeColumn(line string, byteOffset int) int {
	return len([]rune(line[:byteOffset]))
}

// splitKeepEmpty splits text into lines, preserving the trailing
// newline semantics so byte offsets stay exact (unlike strings.Split on
// "\n" alone, this keeps the newline attached to each line so re-joining
// recovers the original byte length).
func splitKeepEmpty(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	} else if len(text) == 0 {
		lines = append(lines, "")
	}
	return lines
}

// parseAliasesYAML extracts the "aliases:" list from a frontmatter
// block's raw lines by joining them and handing the text to
// ParseFrontmatterAliases (gopkg.in/yaml.v3).
func parseAliasesYAML(lines []string) []string {
	return ParseFrontmatterAliases(strings.Join(lines, "\n"))
}
