// Package vaultindex holds the Vault: the mapping from vault-relative
// path to ParsedFile, plus the derived indices (by refname, by tag
// prefix, by footnote scope) that the rest of the server queries.
//
// Vault is the sole owner of parsed state and is protected by a single
// sync.RWMutex — locking granularity is the whole Vault, matching the
// teacher's pkg/cache/service.go. Finer-grained locking isn't justified
// at the request rates a language server actually sees.
package vaultindex

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/token"
)

// ParseFile tokenizes raw text and builds a ParsedFile for the given
// vault-relative path. It never fails: a malformed construct is simply
// not emitted as a token and parsing continues. opts controls whether
// tags/references inside fenced code are recognised; omitting it keeps
// the default of treating fenced code as opaque.
func ParseFile(absPath, relPath, text string, modTime time.Time, open bool, opts ...token.Options) *model.ParsedFile {
	var topts token.Options
	if len(opts) > 0 {
		topts = opts[0]
	}
	toks, fences, aliases := token.TokenizeWithOptions(text, topts)

	pf := &model.ParsedFile{
		AbsPath: absPath,
		Path:    relPath,
		Text:    text,
		ModTime: modTime,
		Aliases: aliases,
		Open:    open,
	}
	pf.CodeFences = fences

	seenBlocks := make(map[string]bool)
	seenTagDefs := make(map[string]bool)
	stem := fileStem(relPath)
	fileDisplay := stem

	for _, t := range toks {
		switch t.Kind {
		case token.KindHeading:
			if pf.FirstHeading == "" {
				pf.FirstHeading = t.HeadingText
			}
			pf.Referenceables = append(pf.Referenceables, model.Referenceable{
				Kind:         model.KindHeading,
				Path:         relPath,
				Refname:      relPath + "#" + t.HeadingText,
				DisplayName:  t.HeadingText,
				HeadingText:  t.HeadingText,
				HeadingLevel: t.HeadingLevel,
				Range:        t.Span.Range,
			})

		case token.KindIndexedBlock:
			if seenBlocks[t.BlockID] {
				continue // first occurrence of a block id wins
			}
			seenBlocks[t.BlockID] = true
			pf.Referenceables = append(pf.Referenceables, model.Referenceable{
				Kind:        model.KindIndexedBlock,
				Path:        relPath,
				Refname:     relPath + "#^" + t.BlockID,
				DisplayName: t.BlockID,
				BlockID:     t.BlockID,
				Range:       t.Span.Range,
			})

		case token.KindFootnoteDefinition:
			pf.Referenceables = append(pf.Referenceables, model.Referenceable{
				Kind:          model.KindFootnoteDefinition,
				Path:          relPath,
				Refname:       relPath + "#^fn-" + t.FootnoteLabel,
				DisplayName:   t.FootnoteLabel,
				FootnoteLabel: t.FootnoteLabel,
				Range:         t.Span.Range,
			})

		case token.KindFootnoteReference:
			pf.References = append(pf.References, model.Reference{
				Kind:          model.RefFootnoteReference,
				Path:          relPath,
				Range:         t.Span.Range,
				FootnoteLabel: t.FootnoteLabel,
			})

		case token.KindTag:
			for _, prefix := range tagPrefixes(t.TagName) {
				key := prefix
				if !seenTagDefs[key] {
					seenTagDefs[key] = true
					pf.Referenceables = append(pf.Referenceables, model.Referenceable{
						Kind:        model.KindTag,
						Path:        relPath,
						Refname:     "#" + prefix,
						DisplayName: "#" + prefix,
						Range:       t.Span.Range,
					})
				}
			}
			pf.References = append(pf.References, model.Reference{
				Kind:    model.RefTag,
				Path:    relPath,
				Range:   t.Span.Range,
				TagName: t.TagName,
			})

		case token.KindWikiLink, token.KindWikiEmbed:
			kind := model.RefWikiLink
			if t.Kind == token.KindWikiEmbed {
				kind = model.RefWikiEmbed
			} else if t.Wiki.IsBlock {
				kind = model.RefWikiIndexedBlock
			} else if t.Wiki.HasHash {
				kind = model.RefWikiHeading
			}
			pf.References = append(pf.References, model.Reference{
				Kind:              kind,
				Path:              relPath,
				Range:             t.Span.Range,
				Display:           t.Wiki.Display,
				TargetPath:        t.Wiki.Path,
				TargetHeading:     t.Wiki.Heading,
				TargetBlockID:     t.Wiki.BlockID,
				TargetHadMdSuffix: strings.HasSuffix(t.Wiki.Path, ".md"),
			})

		case token.KindMdLink:
			kind := model.RefMdLink
			if t.Md.IsBlock {
				kind = model.RefMdIndexedBlock
			} else if t.Md.HasHash {
				kind = model.RefMdHeading
			}
			pf.References = append(pf.References, model.Reference{
				Kind:              kind,
				Path:              relPath,
				Range:             t.Span.Range,
				Display:           t.Md.Display,
				TargetPath:        t.Md.Path,
				TargetHeading:     t.Md.Heading,
				TargetBlockID:     t.Md.BlockID,
				TargetHadMdSuffix: strings.HasSuffix(t.Md.Path, ".md"),
			})
		}
	}

	if pf.FirstHeading != "" {
		fileDisplay = pf.FirstHeading
	}
	pf.Referenceables = append([]model.Referenceable{{
		Kind:        model.KindFile,
		Path:        relPath,
		Refname:     strings.TrimSuffix(relPath, ".md"),
		DisplayName: fileDisplay,
		Range:       model.Range{},
	}}, pf.Referenceables...)

	return pf
}

// tagPrefixes returns every non-empty hierarchical prefix of a tag,
// e.g. "a/b/c" -> ["a", "a/b", "a/b/c"].
func tagPrefixes(tag string) []string {
	parts := strings.Split(tag, "/")
	var out []string
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

func fileStem(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
