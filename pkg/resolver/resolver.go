// Package resolver turns the raw, unresolved targets a reference carries
// (a path part, an optional heading or block fragment) into the set of
// Referenceables it actually points at, applying case-matching policy,
// the alias table, and daily-date substitution along the way.
//
// Resolution never fails outright: a target that cannot be matched to
// anything in the vault comes back as a synthetic Unresolved
// referenceable, carrying the original text, so completion, rename and
// code actions can still act on a link that points nowhere yet. This
// mirrors pkg/obsidian/wikilinks.go's NotePathCache.ResolveNote, widened
// from "note name -> path" to the full file / heading / block / alias /
// daily-date resolution chain, and is shaped after
// backend/internal/vault/resolver.go's LinkResolver (pathToID /
// basenameToIDs / normalizedToIDs maps feeding one Resolve entry point).
package resolver

import (
	"path/filepath"
	"strings"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/vaultindex"
)

// CaseMatching controls how a textual file-path target is matched
// against the vault's indexed basenames.
type CaseMatching int

const (
	// CaseIgnore matches basenames case-insensitively, always.
	CaseIgnore CaseMatching = iota
	// CaseSmart matches case-insensitively unless the query itself
	// contains an uppercase letter, in which case it matches exactly.
	CaseSmart
	// CaseRespect matches basenames exactly, case-sensitively.
	CaseRespect
)

// Options are the per-call knobs threaded through a resolve. They are
// not baked into the Vault index because the same reference can be
// resolved under different policies (e.g. completion previews vs. the
// user's configured default) without re-indexing.
type Options struct {
	CaseMatching CaseMatching

	// StripMdSuffix strips a literal ".md" suffix from a path-part
	// before matching, so "[[Note.md]]" resolves the same as "[[Note]]".
	StripMdSuffix bool
}

// DatePhraseResolver translates a fuzzy natural-language or formatted
// date phrase into the vault-relative daily-note filename it names, if
// the phrase parses as a date at all. Implemented by pkg/dateparse;
// declared here so this package has no import-time dependency on it.
type DatePhraseResolver interface {
	ResolveDatePhrase(phrase string) (path string, ok bool)
}

// Resolver resolves references against a Vault.
type Resolver struct {
	vault *vaultindex.Vault
	dates DatePhraseResolver
}

// New constructs a Resolver. dates may be nil, in which case daily-date
// phrase substitution is skipped (target paths are matched literally).
func New(vault *vaultindex.Vault, dates DatePhraseResolver) *Resolver {
	return &Resolver{vault: vault, dates: dates}
}

// Resolve resolves a parsed Reference to the Referenceables it targets.
// A tag reference resolves against the hierarchical tag index, matching
// the tag itself and every ancestor prefix of it, so a reference to
// "#a/b/c" also counts as a reference to "#a/b" and "#a"; a footnote
// reference resolves within its own file; everything else goes through
// ResolveTarget.
func (r *Resolver) Resolve(ref model.Reference, opts Options) []model.Referenceable {
	switch ref.Kind {
	case model.RefTag:
		return r.resolveTagAncestors(ref.TagName)
	case model.RefFootnoteReference:
		return r.resolveFootnote(ref.Path, ref.FootnoteLabel)
	default:
		return r.ResolveTarget(ref.Path, ref.TargetPath, ref.TargetHeading, ref.TargetBlockID, opts)
	}
}

// resolveTagAncestors returns the Referenceables for tag and every
// ancestor prefix of it ("a/b/c" also yields "#a" and "#a/b"), mirroring
// the prefix entries pkg/vaultindex/parse.go builds for each tag
// occurrence. The tag itself comes first, most-specific to least, so
// callers that only look at the first result (e.g. "what's under the
// cursor") still get the exact tag rather than a broader ancestor.
func (r *Resolver) resolveTagAncestors(tag string) []model.Referenceable {
	parts := strings.Split(tag, "/")
	var out []model.Referenceable
	for i := len(parts) - 1; i >= 0; i-- {
		prefix := strings.Join(parts[:i+1], "/")
		out = append(out, r.vault.QueryByRefname("#"+prefix)...)
	}
	return out
}

func (r *Resolver) resolveFootnote(sourcePath, label string) []model.Referenceable {
	return r.vault.QueryByRefname(sourcePath + "#^fn-" + label)
}

// ResolveTarget resolves the split form of a wiki or markdown link
// target: sourcePath is the file the reference occurs in (used for
// same-file "[[#Heading]]" / "[[]]" targets when pathPart is empty),
// pathPart is the raw path text, headingPart and blockID are its
// fragment (mutually exclusive; both empty means "the file itself").
func (r *Resolver) ResolveTarget(sourcePath, pathPart, headingPart, blockID string, opts Options) []model.Referenceable {
	path := pathPart
	rawTarget := pathPart

	if path == "" {
		path = sourcePath
	} else {
		if r.dates != nil {
			if substituted, ok := r.dates.ResolveDatePhrase(path); ok {
				path = substituted
			}
		}

		if resolved, ok := r.resolveFilePath(path, opts); ok {
			path = resolved
		} else if aliasPath, ok := r.vault.ResolveAlias(path); ok {
			path = aliasPath
		} else {
			return r.unresolved(rawTarget, headingPart, blockID)
		}
	}

	switch {
	case blockID != "":
		if refs := r.vault.QueryByRefname(path + "#^" + blockID); len(refs) > 0 {
			return refs
		}
		return []model.Referenceable{{
			Kind:        model.KindUnresolvedIndexedBlock,
			Path:        path,
			Refname:     path + "#^" + blockID,
			DisplayName: blockID,
			BlockID:     blockID,
		}}

	case headingPart != "":
		if refs := r.resolveHeading(path, headingPart); len(refs) > 0 {
			return refs
		}
		return []model.Referenceable{{
			Kind:        model.KindUnresolvedHeading,
			Path:        path,
			Refname:     path + "#" + headingPart,
			DisplayName: headingPart,
			HeadingText: headingPart,
		}}

	default:
		return r.vault.QueryByRefname(strings.TrimSuffix(path, ".md"))
	}
}

// resolveHeading finds a file's Heading referenceable whose text
// matches headingText case-insensitively — Obsidian itself treats
// heading fragments as case-insensitive regardless of the file's case
// policy.
func (r *Resolver) resolveHeading(path, headingText string) []model.Referenceable {
	pf, ok := r.vault.File(path)
	if !ok {
		return nil
	}
	var out []model.Referenceable
	for _, rfb := range pf.Referenceables {
		if rfb.Kind == model.KindHeading && strings.EqualFold(rfb.HeadingText, headingText) {
			out = append(out, rfb)
		}
	}
	return out
}

// resolveFilePath normalises a raw path-part and matches it against the
// vault: first an exact vault-relative match, then a basename match
// under the configured case policy. Returns the matched vault-relative
// path.
func (r *Resolver) resolveFilePath(path string, opts Options) (string, bool) {
	clean := path
	if opts.StripMdSuffix {
		clean = strings.TrimSuffix(clean, ".md")
	}
	clean = strings.TrimSuffix(clean, "/")

	candidate := clean
	if !strings.HasSuffix(candidate, ".md") {
		candidate += ".md"
	}
	if _, ok := r.vault.File(candidate); ok {
		return candidate, true
	}

	stem := clean
	if idx := strings.LastIndex(stem, "/"); idx >= 0 {
		stem = stem[idx+1:]
	}
	for _, m := range r.vault.QueryByBasename(stem) {
		if matchesCase(stem, fileStem(m.Path), opts.CaseMatching) {
			return m.Path, true
		}
	}

	return "", false
}

func (r *Resolver) unresolved(pathPart, headingPart, blockID string) []model.Referenceable {
	switch {
	case blockID != "":
		return []model.Referenceable{{
			Kind:        model.KindUnresolvedIndexedBlock,
			Path:        pathPart,
			Refname:     pathPart + "#^" + blockID,
			DisplayName: blockID,
			BlockID:     blockID,
		}}
	case headingPart != "":
		return []model.Referenceable{{
			Kind:        model.KindUnresolvedHeading,
			Path:        pathPart,
			Refname:     pathPart + "#" + headingPart,
			DisplayName: headingPart,
			HeadingText: headingPart,
		}}
	default:
		return []model.Referenceable{{
			Kind:        model.KindUnresolvedFile,
			Path:        pathPart,
			Refname:     pathPart,
			DisplayName: fileStem(pathPart),
		}}
	}
}

func matchesCase(query, candidate string, policy CaseMatching) bool {
	switch policy {
	case CaseRespect:
		return query == candidate
	case CaseSmart:
		if hasUpper(query) {
			return query == candidate
		}
		return strings.EqualFold(query, candidate)
	default: // CaseIgnore
		return strings.EqualFold(query, candidate)
	}
}

func hasUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
