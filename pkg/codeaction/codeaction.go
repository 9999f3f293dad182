// Package codeaction computes rename workspace edits and the two
// dangling-link code actions (create file, append heading). It never
// writes to disk itself — every function here returns a
// model.WorkspaceEdit for its caller (pkg/lspserver) to apply: text
// edits go to the LSP client, FileOps are applied directly to disk.
package codeaction

import (
	"fmt"
	"strings"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/vaultindex"
)

// Engine computes rename and code-action edits against a Vault.
type Engine struct {
	vault    *vaultindex.Vault
	resolver *resolver.Resolver
	opts     resolver.Options

	// TitleHeadings, when true, makes file-creation actions insert a
	// leading "# <name>" heading into a newly created note.
	TitleHeadings bool
	// NewFileFolder is the vault-relative folder new notes are created
	// in when no more specific folder is implied (e.g. not a daily note).
	NewFileFolder string
}

// New constructs an Engine.
func New(vault *vaultindex.Vault, res *resolver.Resolver, opts resolver.Options) *Engine {
	return &Engine{vault: vault, resolver: res, opts: opts}
}

// RenameFile renames a file and rewrites every reference that resolved
// to it, across the whole vault.
func (e *Engine) RenameFile(oldPath, newPath string) model.WorkspaceEdit {
	edit := model.WorkspaceEdit{Edits: make(map[string][]model.TextEdit)}
	oldRefname := strings.TrimSuffix(oldPath, ".md")
	newRefname := strings.TrimSuffix(newPath, ".md")

	e.vault.IterateReferences(func(ref model.Reference) {
		if !isFileTargeted(ref) {
			return
		}
		targets := e.resolver.Resolve(ref, e.opts)
		if !targetsInclude(targets, model.KindFile, oldRefname) {
			return
		}
		newText := renderWithTarget(ref, newRefname)
		edit.Edits[ref.Path] = append(edit.Edits[ref.Path], model.TextEdit{Range: ref.Range, NewText: newText})
	})

	edit.FileOps = append(edit.FileOps, model.FileOp{Kind: model.FileOpRename, OldPath: oldPath, NewPath: newPath})
	return edit
}

// RenameHeading edits the heading line itself and rewrites every
// reference whose heading fragment resolved to it.
func (e *Engine) RenameHeading(path, oldHeading, newHeading string, headingRange model.Range, headingLevel int) model.WorkspaceEdit {
	edit := model.WorkspaceEdit{Edits: make(map[string][]model.TextEdit)}

	prefix := strings.Repeat("#", headingLevel)
	edit.Edits[path] = append(edit.Edits[path], model.TextEdit{
		Range:   headingRange,
		NewText: fmt.Sprintf("%s %s", prefix, newHeading),
	})

	refname := path + "#" + oldHeading
	e.vault.IterateReferences(func(ref model.Reference) {
		if ref.TargetHeading == "" {
			return
		}
		targets := e.resolver.Resolve(ref, e.opts)
		if !targetsInclude(targets, model.KindHeading, refname) {
			return
		}
		newText := renderWithHeading(ref, newHeading)
		edit.Edits[ref.Path] = append(edit.Edits[ref.Path], model.TextEdit{Range: ref.Range, NewText: newText})
	})

	return edit
}

// RenameTag rewrites every occurrence of oldTag and every hierarchical
// descendant "oldTag/…" to the corresponding name under newTag.
func (e *Engine) RenameTag(oldTag, newTag string) model.WorkspaceEdit {
	edit := model.WorkspaceEdit{Edits: make(map[string][]model.TextEdit)}

	e.vault.IterateReferences(func(ref model.Reference) {
		if ref.Kind != model.RefTag {
			return
		}
		if ref.TagName != oldTag && !strings.HasPrefix(ref.TagName, oldTag+"/") {
			return
		}
		renamed := newTag + strings.TrimPrefix(ref.TagName, oldTag)
		edit.Edits[ref.Path] = append(edit.Edits[ref.Path], model.TextEdit{
			Range:   ref.Range,
			NewText: "#" + renamed,
		})
	})

	return edit
}

// CreateFileForUnresolvedLink materialises a new note at name within
// folder (or e.NewFileFolder if folder is empty), returning a FileOp
// create plus its initial content.
func (e *Engine) CreateFileForUnresolvedLink(folder, name string) model.WorkspaceEdit {
	if folder == "" {
		folder = e.NewFileFolder
	}
	newPath := name + ".md"
	if folder != "" {
		newPath = folder + "/" + newPath
	}

	content := ""
	if e.TitleHeadings {
		content = fmt.Sprintf("# %s\n", name)
	}

	return model.WorkspaceEdit{
		FileOps: []model.FileOp{{Kind: model.FileOpCreate, NewPath: newPath, Content: content}},
	}
}

// AppendHeadingToFile appends "\n# <heading>\n" to path, creating it
// first if it does not yet exist.
func (e *Engine) AppendHeadingToFile(path, heading string) model.WorkspaceEdit {
	edit := model.WorkspaceEdit{Edits: make(map[string][]model.TextEdit)}
	appendText := fmt.Sprintf("\n# %s\n", heading)

	if pf, ok := e.vault.File(path); ok {
		endLine := strings.Count(pf.Text, "\n")
		endCol := 0
		if idx := strings.LastIndex(pf.Text, "\n"); idx >= 0 {
			endCol = len(pf.Text) - idx - 1
		} else {
			endCol = len(pf.Text)
		}
		end := model.Pos{Line: endLine, Col: endCol}
		edit.Edits[path] = append(edit.Edits[path], model.TextEdit{Range: model.Range{Start: end, End: end}, NewText: appendText})
		return edit
	}

	edit.FileOps = append(edit.FileOps, model.FileOp{Kind: model.FileOpCreate, NewPath: path, Content: strings.TrimPrefix(appendText, "\n")})
	return edit
}

func isFileTargeted(ref model.Reference) bool {
	switch ref.Kind {
	case model.RefWikiLink, model.RefWikiHeading, model.RefWikiIndexedBlock, model.RefWikiEmbed,
		model.RefMdLink, model.RefMdHeading, model.RefMdIndexedBlock:
		return true
	default:
		return false
	}
}

func targetsInclude(targets []model.Referenceable, kind model.ReferenceableKind, refname string) bool {
	for _, t := range targets {
		if t.Kind == kind && t.Refname == refname {
			return true
		}
	}
	return false
}

// renderWithTarget reconstructs ref's source text with its path part
// replaced, preserving wiki/markdown syntax, fragment, and display
// text, and the original reference's literal ".md" suffix-or-not
// state — so renaming A -> B -> A round-trips back to the exact
// source text it started from.
func renderWithTarget(ref model.Reference, newPath string) string {
	if ref.TargetHadMdSuffix && !strings.HasSuffix(newPath, ".md") {
		newPath += ".md"
	}
	return render(ref, newPath, ref.TargetHeading, ref.TargetBlockID)
}

func renderWithHeading(ref model.Reference, newHeading string) string {
	return render(ref, ref.TargetPath, newHeading, ref.TargetBlockID)
}

func render(ref model.Reference, targetPath, heading, blockID string) string {
	fragment := ""
	if blockID != "" {
		fragment = "#^" + blockID
	} else if heading != "" {
		fragment = "#" + heading
	}

	target := targetPath + fragment

	if ref.IsWiki() {
		body := target
		if ref.Display != "" {
			body += "|" + ref.Display
		}
		if ref.IsEmbed() {
			return "![[" + body + "]]"
		}
		return "[[" + body + "]]"
	}

	display := ref.Display
	return "[" + display + "](" + encodeMdTarget(target) + ")"
}

// encodeMdTarget percent-encodes spaces only — the one escape the
// tokenizer's decodePercentSpaces reverses on read. '#' and '/' are
// left alone since they carry fragment/path meaning in a link target.
func encodeMdTarget(target string) string {
	return strings.ReplaceAll(target, " ", "%20")
}
