// Package model defines the vault's data model: parsed files, the
// referenceables they define, and the references they contain.
package model

import "time"

// Pos is a zero-based line/column position, matching LSP's convention
// (column counted in UTF-16 code units is the caller's concern; the
// tokenizer works in runes, which lspserver translates at the boundary).
type Pos struct {
	Line int
	Col  int
}

// Range is a half-open span between two positions.
type Range struct {
	Start Pos
	End   Pos
}

// ByteRange is a half-open byte offset span within a file's raw text.
type ByteRange struct {
	Start int
	End   int
}

// Span couples a byte range with its line/column rendering, the unit
// the tokenizer emits and everything downstream consumes.
type Span struct {
	Bytes ByteRange
	Range Range
}

// ReferenceableKind tags the variant of a Referenceable.
type ReferenceableKind int

const (
	KindFile ReferenceableKind = iota
	KindHeading
	KindIndexedBlock
	KindTag
	KindFootnoteDefinition
	KindUnresolvedFile
	KindUnresolvedHeading
	KindUnresolvedIndexedBlock
)

func (k ReferenceableKind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindHeading:
		return "Heading"
	case KindIndexedBlock:
		return "IndexedBlock"
	case KindTag:
		return "Tag"
	case KindFootnoteDefinition:
		return "FootnoteDefinition"
	case KindUnresolvedFile:
		return "UnresolvedFile"
	case KindUnresolvedHeading:
		return "UnresolvedHeading"
	case KindUnresolvedIndexedBlock:
		return "UnresolvedIndexedBlock"
	default:
		return "Unknown"
	}
}

// Referenceable is anything that can be the target of a Reference: a
// file, a heading, an indexed block, a tag, a footnote definition, or a
// synthetic unresolved target materialised so completion/rename/code
// actions can still act on a dangling link.
type Referenceable struct {
	Kind ReferenceableKind

	// Path is the vault-relative path of the owning file. Always set,
	// even for Tag (where it names the defining occurrence) and for
	// Unresolved* (where it is the textual, unresolved path).
	Path string

	// Refname is the canonical matching string ("path" below is the
	// vault-relative path including ".md"):
	//   File               -> vault-relative path without ".md"
	//   Heading            -> "path#heading"
	//   IndexedBlock       -> "path#^id"
	//   Tag                -> "#a/b/c"
	//   FootnoteDefinition -> "path#^fn-label" (file-local scope)
	//   UnresolvedFile         -> the raw textual path
	//   UnresolvedHeading      -> "path#heading"
	//   UnresolvedIndexedBlock -> "path#^id"
	Refname string

	// DisplayName is what completion/hover show: file stem, or first
	// heading when title_headings is enabled; heading text for
	// headings; the tag name for tags.
	DisplayName string

	// Heading-only.
	HeadingText  string
	HeadingLevel int

	// IndexedBlock-only.
	BlockID string

	// FootnoteDefinition-only.
	FootnoteLabel string

	// Location of the definition itself.
	Range Range
}

// ReferenceKind tags the variant of a Reference.
type ReferenceKind int

const (
	RefWikiLink ReferenceKind = iota
	RefWikiHeading
	RefWikiIndexedBlock
	RefWikiEmbed
	RefMdLink
	RefMdHeading
	RefMdIndexedBlock
	RefTag
	RefFootnoteReference
)

func (k ReferenceKind) String() string {
	switch k {
	case RefWikiLink:
		return "WikiLink"
	case RefWikiHeading:
		return "WikiHeading"
	case RefWikiIndexedBlock:
		return "WikiIndexedBlock"
	case RefWikiEmbed:
		return "WikiEmbed"
	case RefMdLink:
		return "MdLink"
	case RefMdHeading:
		return "MdHeading"
	case RefMdIndexedBlock:
		return "MdIndexedBlock"
	case RefTag:
		return "Tag"
	case RefFootnoteReference:
		return "FootnoteReference"
	default:
		return "Unknown"
	}
}

// Reference is a textual occurrence that points at a referenceable: a
// wiki-link, markdown-link, tag, or footnote use.
type Reference struct {
	Kind ReferenceKind

	// Path is the vault-relative path of the file the reference occurs in.
	Path string

	// Range of the whole span (e.g. the entire "[[...]]").
	Range Range

	// Display is the optional alias text (the part after "|" in a
	// wikilink, or the bracketed text in a markdown link).
	Display string

	// TargetPath is the raw path-part of the target, before resolution
	// (e.g. "folder/Note", or "" for a same-file "[[#Heading]]" link).
	TargetPath string

	// TargetHadMdSuffix records whether TargetPath carried a literal
	// ".md" suffix in the source text, so a rename can reproduce it
	// (StripMdSuffix resolution must not be allowed to launder it away).
	TargetHadMdSuffix bool

	// TargetHeading is the raw fragment heading text, if any.
	TargetHeading string

	// TargetBlockID is the raw fragment block id, if any (without "^").
	TargetBlockID string

	// TagName is set only for RefTag: the full hierarchical tag text,
	// without the leading "#".
	TagName string

	// FootnoteLabel is set only for RefFootnoteReference.
	FootnoteLabel string
}

// IsWiki reports whether the reference used wiki-link syntax (including
// embeds), as opposed to markdown-link syntax.
func (r Reference) IsWiki() bool {
	switch r.Kind {
	case RefWikiLink, RefWikiHeading, RefWikiIndexedBlock, RefWikiEmbed:
		return true
	default:
		return false
	}
}

// IsEmbed reports whether the reference is an embedded ("![[...]]") form.
func (r Reference) IsEmbed() bool { return r.Kind == RefWikiEmbed }

// CodeFenceRange marks a fenced code block's line extent (inclusive of
// the fence lines themselves), used to filter references/tags per
// tags_in_codeblocks / references_in_codeblocks configuration.
type CodeFenceRange struct {
	StartLine int
	EndLine   int
}

// ParsedFile is the parsed representation of one vault file: its raw
// text, the referenceables it defines, and the references it contains.
type ParsedFile struct {
	// AbsPath is the file's absolute filesystem path.
	AbsPath string
	// Path is the file's vault-relative path, using "/" separators.
	Path string

	Text    string
	ModTime time.Time

	Referenceables []Referenceable
	References     []Reference

	// FirstHeading is the text of the first level-1..6 heading in the
	// file, if any; used as the display name when title_headings is set.
	FirstHeading string

	// Aliases is the file's frontmatter "aliases" list.
	Aliases []string

	CodeFences []CodeFenceRange

	// Open reports whether this file's text came from an editor buffer
	// (invariant 2: editor buffer text takes precedence over disk).
	Open bool
}

// Location identifies a position within the vault: a file plus a range.
type Location struct {
	Path  string
	Range Range
}

// TextEdit replaces the text within Range in one file with NewText.
type TextEdit struct {
	Range   Range
	NewText string
}

// FileOpKind tags the kind of filesystem side effect a WorkspaceEdit
// carries alongside its text edits.
type FileOpKind int

const (
	FileOpNone FileOpKind = iota
	FileOpRename
	FileOpCreate
)

// FileOp is a single filesystem operation: renaming an existing file,
// or creating a new one with initial content.
type FileOp struct {
	Kind FileOpKind

	// OldPath/NewPath are vault-relative. OldPath is set for rename;
	// NewPath is set for both rename and create.
	OldPath string
	NewPath string

	// Content is the initial file content for FileOpCreate.
	Content string
}

// WorkspaceEdit bundles per-file text edits with any accompanying file
// operations (rename, create). The server computes both halves; only
// the text edits are sent to the client as an LSP WorkspaceEdit, since
// plain TextEdit changes can't express a rename or create. The server
// applies FileOps directly against disk (see lspserver.Server.applyFileOps).
type WorkspaceEdit struct {
	Edits   map[string][]TextEdit
	FileOps []FileOp
}

// Diagnostic flags a single unresolved reference.
type Diagnostic struct {
	Range   Range
	Message string
}

// SemanticToken marks a span with a token type the client should
// highlight distinctly — currently only ever "unresolvedReference".
type SemanticToken struct {
	Range     Range
	TokenType string
}

// CodeLens is an inline "N references" annotation anchored to a range.
type CodeLens struct {
	Range Range
	Title string
}

// InlayHint is a short label rendered inline at Pos, used here for
// embed (transclusion) previews.
type InlayHint struct {
	Pos   Pos
	Label string
}

// SymbolKind distinguishes the three things workspace/document symbol
// search returns.
type SymbolKind int

const (
	SymbolFile SymbolKind = iota
	SymbolHeading
	SymbolTag
)

// Symbol is one entry in a document or workspace symbol response.
type Symbol struct {
	Kind     SymbolKind
	Name     string
	Location Location
	// Children holds nested headings for the document-symbol outline
	// (a level-2 heading nested under its enclosing level-1 heading).
	Children []Symbol
}
