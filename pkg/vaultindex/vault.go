package vaultindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/token"
)

// Vault is the mapping from vault-relative path to ParsedFile plus its
// derived indices. It is the sole owner of parsed state. All access goes
// through the RWMutex: readers (File, Query*, All*, Iterate*) take
// RLock; writers (InstallFile, RemoveFile, Rebuild) take Lock, following the crawl / watch / refresh dataflow of
// pkg/cache/service.go.
type Vault struct {
	Root string

	mu    sync.RWMutex
	files map[string]*model.ParsedFile

	// byRefname indexes every Referenceable by its canonical refname.
	// Multiple referenceables can share a refname (e.g. two files with
	// the same basename in different folders), so each entry is a slice.
	byRefname map[string][]model.Referenceable

	// byTagPrefix indexes referenceables by tag prefix (a subset of
	// byRefname's Tag entries, kept separately for Query-by-tag-prefix).
	byTagPrefix map[string][]model.Referenceable

	// byBasenameLower indexes File referenceables by lowercased file
	// stem, for basename-match resolution independent of folder.
	byBasenameLower map[string][]model.Referenceable

	// aliases indexes file path -> its frontmatter alias list, used by
	// the resolver's alias lookup.
	aliases map[string][]string

	ignoredPaths []string
	tokenOpts    token.Options
}

// New constructs an empty Vault rooted at root. opts controls whether
// tags/references inside fenced code are recognised when Rebuild
// parses files from disk; omitting it keeps fenced code opaque.
func New(root string, ignoredPaths []string, opts ...token.Options) *Vault {
	var topts token.Options
	if len(opts) > 0 {
		topts = opts[0]
	}
	return &Vault{
		Root:            root,
		files:           make(map[string]*model.ParsedFile),
		byRefname:       make(map[string][]model.Referenceable),
		byTagPrefix:     make(map[string][]model.Referenceable),
		byBasenameLower: make(map[string][]model.Referenceable),
		aliases:         make(map[string][]string),
		ignoredPaths:    ignoredPaths,
		tokenOpts:       topts,
	}
}

// Rebuild performs a full walk of the vault root, replacing the entire
// index. Per-file parse errors are impossible (ParseFile never fails —
// a malformed construct is simply skipped); a file that cannot be
// *read* is skipped and indexing continues for the rest of the vault.
func (v *Vault) Rebuild() error {
	files := make(map[string]*model.ParsedFile)

	err := filepath.WalkDir(v.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if d.IsDir() {
			if ShouldIgnorePath(v.Root, path, v.ignoredPaths) && path != v.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		if ShouldIgnorePath(v.Root, path, v.ignoredPaths) {
			return nil
		}

		rel, err := filepath.Rel(v.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		files[rel] = ParseFile(path, rel, string(content), info.ModTime(), false, v.tokenOpts)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk vault: %w", err)
	}

	v.mu.Lock()
	v.files = files
	v.reindexLocked()
	v.mu.Unlock()
	return nil
}

// InstallFile atomically replaces the ParsedFile for a path: the old
// entry is dropped and the new one installed in a single locked step.
func (v *Vault) InstallFile(pf *model.ParsedFile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[pf.Path] = pf
	v.reindexLocked()
}

// RemoveFile drops a path and every referenceable/reference it owned.
func (v *Vault) RemoveFile(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.files, path)
	v.reindexLocked()
}

// reindexLocked rebuilds the derived indices from v.files. Called with
// v.mu held for writing. Rebuilding everything on every change is
// coarse but cheap enough: vaults of tens of thousands of notes still
// reindex well within human-interactive latency.
func (v *Vault) reindexLocked() {
	byRefname := make(map[string][]model.Referenceable)
	byTagPrefix := make(map[string][]model.Referenceable)
	byBasenameLower := make(map[string][]model.Referenceable)
	aliases := make(map[string][]string)

	for _, pf := range v.files {
		if len(pf.Aliases) > 0 {
			aliases[pf.Path] = pf.Aliases
		}
		for _, r := range pf.Referenceables {
			byRefname[r.Refname] = append(byRefname[r.Refname], r)
			switch r.Kind {
			case model.KindTag:
				name := strings.TrimPrefix(r.Refname, "#")
				byTagPrefix[name] = append(byTagPrefix[name], r)
			case model.KindFile:
				stem := strings.ToLower(filepath.Base(strings.TrimSuffix(r.Path, ".md")))
				byBasenameLower[stem] = append(byBasenameLower[stem], r)
			}
		}
	}

	v.byRefname = byRefname
	v.byTagPrefix = byTagPrefix
	v.byBasenameLower = byBasenameLower
	v.aliases = aliases
}

// QueryByBasename returns File referenceables whose file stem
// case-insensitively equals name (any folder).
func (v *Vault) QueryByBasename(name string) []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.Referenceable(nil), v.byBasenameLower[strings.ToLower(name)]...)
}

// ResolveAlias returns the file path owning alias (case-insensitive
// match against every file's frontmatter aliases), if any.
func (v *Vault) ResolveAlias(alias string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	lower := strings.ToLower(alias)
	for path, as := range v.aliases {
		for _, a := range as {
			if strings.ToLower(a) == lower {
				return path, true
			}
		}
	}
	return "", false
}

// File returns the ParsedFile for a vault-relative path, if indexed.
func (v *Vault) File(path string) (*model.ParsedFile, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pf, ok := v.files[path]
	return pf, ok
}

// AllFiles returns a stable-ordered snapshot of every indexed path.
func (v *Vault) AllFiles() []*model.ParsedFile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*model.ParsedFile, 0, len(v.files))
	for _, pf := range v.files {
		out = append(out, pf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FileReferenceables returns each indexed file's own File referenceable,
// sorted by refname — the candidate set wiki/markdown link completion
// starts from.
func (v *Vault) FileReferenceables() []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Referenceable, 0, len(v.files))
	for _, pf := range v.files {
		for _, r := range pf.Referenceables {
			if r.Kind == model.KindFile {
				out = append(out, r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Refname < out[j].Refname })
	return out
}

// AliasPairs returns every (alias, owning file path) pair in the vault,
// sorted by alias.
func (v *Vault) AliasPairs() [][2]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out [][2]string
	for path, as := range v.aliases {
		for _, a := range as {
			out = append(out, [2]string{a, path})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] == out[j][0] {
			return out[i][1] < out[j][1]
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// HeadingsIn returns the Heading referenceables defined in path.
func (v *Vault) HeadingsIn(path string) []model.Referenceable {
	return v.referenceablesOfKind(path, model.KindHeading)
}

// BlocksIn returns the IndexedBlock referenceables defined in path.
func (v *Vault) BlocksIn(path string) []model.Referenceable {
	return v.referenceablesOfKind(path, model.KindIndexedBlock)
}

// FootnotesIn returns the FootnoteDefinition referenceables defined in path.
func (v *Vault) FootnotesIn(path string) []model.Referenceable {
	return v.referenceablesOfKind(path, model.KindFootnoteDefinition)
}

func (v *Vault) referenceablesOfKind(path string, kind model.ReferenceableKind) []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pf, ok := v.files[path]
	if !ok {
		return nil
	}
	var out []model.Referenceable
	for _, r := range pf.Referenceables {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// LineRef identifies one line of text within one vault file.
type LineRef struct {
	Path string
	Line int
	Text string
}

// AllLines returns every line of every indexed file, in path order —
// the search space for wiki unindexed-block completion.
func (v *Vault) AllLines() []LineRef {
	v.mu.RLock()
	paths := make([]string, 0, len(v.files))
	for p := range v.files {
		paths = append(paths, p)
	}
	texts := make(map[string]string, len(v.files))
	for p, pf := range v.files {
		texts[p] = pf.Text
	}
	v.mu.RUnlock()

	sort.Strings(paths)
	var out []LineRef
	for _, p := range paths {
		for i, line := range strings.Split(texts[p], "\n") {
			out = append(out, LineRef{Path: p, Line: i, Text: line})
		}
	}
	return out
}

// QueryByRefname returns candidate referenceables for an exact refname.
func (v *Vault) QueryByRefname(refname string) []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := append([]model.Referenceable(nil), v.byRefname[refname]...)
	return out
}

// QueryByTagPrefix returns every Tag referenceable whose hierarchical
// name is exactly prefix (not its descendants); callers climbing the
// hierarchy call this once per level.
func (v *Vault) QueryByTagPrefix(prefix string) []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := append([]model.Referenceable(nil), v.byTagPrefix[prefix]...)
	return out
}

// AllTagNames returns every distinct tag name indexed (all hierarchy
// levels), sorted; used by tag completion.
func (v *Vault) AllTagNames() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.byTagPrefix))
	for name := range v.byTagPrefix {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AllTagReferenceables returns every Tag referenceable in the vault
// (every file's occurrence of every hierarchy level), sorted by
// refname then path.
func (v *Vault) AllTagReferenceables() []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []model.Referenceable
	for _, refs := range v.byTagPrefix {
		out = append(out, refs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Refname == out[j].Refname {
			return out[i].Path < out[j].Path
		}
		return out[i].Refname < out[j].Refname
	})
	return out
}

// AllHeadings returns every Heading referenceable in the vault, sorted
// by refname ("path.md#heading"), i.e. by path then heading text.
func (v *Vault) AllHeadings() []model.Referenceable {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []model.Referenceable
	for _, pf := range v.files {
		for _, r := range pf.Referenceables {
			if r.Kind == model.KindHeading {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Refname < out[j].Refname })
	return out
}

// IterateReferences calls fn for every reference in the vault, file by
// file in path order, for deterministic iteration.
func (v *Vault) IterateReferences(fn func(model.Reference)) {
	v.mu.RLock()
	paths := make([]string, 0, len(v.files))
	for p := range v.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	// Copy references out under the lock so fn can run lock-free.
	perFile := make([][]model.Reference, len(paths))
	for i, p := range paths {
		perFile[i] = append([]model.Reference(nil), v.files[p].References...)
	}
	v.mu.RUnlock()

	for _, refs := range perFile {
		for _, r := range refs {
			fn(r)
		}
	}
}

// ReferencesIn returns a copy of the references of the file at path as
// of this snapshot, or nil when the path is not indexed.
func (v *Vault) ReferencesIn(path string) []model.Reference {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pf, ok := v.files[path]
	if !ok {
		return nil
	}
	return append([]model.Reference(nil), pf.References...)
}

// FileModTime returns a path's effective mtime: the editor buffer's
// conceptual "now" while open (an open buffer is always authoritative,
// so its apparent recency for sort purposes is the latest write time
// recorded on open/change), else disk mtime.
func (v *Vault) FileModTime(path string) (time.Time, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pf, ok := v.files[path]
	if !ok {
		return time.Time{}, false
	}
	return pf.ModTime, true
}
