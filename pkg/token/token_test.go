package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kindsOf(tokens []Token) []Kind {
	var ks []Kind
	for _, tok := range tokens {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func TestTokenize_WikiLink(t *testing.T) {
	tokens, _, _ := Tokenize("See [[Project#Goals|the goals]] for detail.")
	require.Contains(t, kindsOf(tokens), KindWikiLink)
	var wiki Token
	for _, tok := range tokens {
		if tok.Kind == KindWikiLink {
			wiki = tok
		}
	}
	require.Equal(t, "Project", wiki.Wiki.Path)
	require.Equal(t, "Goals", wiki.Wiki.Heading)
	require.Equal(t, "the goals", wiki.Wiki.Display)
	require.False(t, wiki.Wiki.IsBlock)
}

func TestTokenize_WikiEmbed(t *testing.T) {
	tokens, _, _ := Tokenize("![[Diagram.png]]")
	require.Len(t, tokens, 1)
	require.Equal(t, KindWikiEmbed, tokens[0].Kind)
	require.Equal(t, "Diagram.png", tokens[0].Wiki.Path)
}

func TestTokenize_WikiBlockReference(t *testing.T) {
	tokens, _, _ := Tokenize("[[Note#^abc123]]")
	require.Len(t, tokens, 1)
	require.True(t, tokens[0].Wiki.IsBlock)
	require.Equal(t, "abc123", tokens[0].Wiki.BlockID)
}

func TestTokenize_MdLink(t *testing.T) {
	tokens, _, _ := Tokenize("Read [the doc](Guide#Setup) now.")
	require.Len(t, tokens, 1)
	require.Equal(t, KindMdLink, tokens[0].Kind)
	require.Equal(t, "the doc", tokens[0].Md.Display)
	require.Equal(t, "Guide", tokens[0].Md.Path)
	require.Equal(t, "Setup", tokens[0].Md.Heading)
}

func TestTokenize_MdLinkPercentEncodedSpace(t *testing.T) {
	tokens, _, _ := Tokenize("[x](My%20Note.md)")
	require.Len(t, tokens, 1)
	require.Equal(t, "My Note.md", tokens[0].Md.Path)
}

func TestTokenize_Heading(t *testing.T) {
	tokens, _, _ := Tokenize("## Section Two")
	require.Len(t, tokens, 1)
	require.Equal(t, KindHeading, tokens[0].Kind)
	require.Equal(t, 2, tokens[0].HeadingLevel)
	require.Equal(t, "Section Two", tokens[0].HeadingText)
}

func TestTokenize_IndexedBlock(t *testing.T) {
	tokens, _, _ := Tokenize("Some important line. ^block-1")
	require.Contains(t, kindsOf(tokens), KindIndexedBlock)
	for _, tok := range tokens {
		if tok.Kind == KindIndexedBlock {
			require.Equal(t, "block-1", tok.BlockID)
		}
	}
}

func TestTokenize_Tag(t *testing.T) {
	tokens, _, _ := Tokenize("a note about #project/alpha and #beta")
	var tags []string
	for _, tok := range tokens {
		if tok.Kind == KindTag {
			tags = append(tags, tok.TagName)
		}
	}
	require.Equal(t, []string{"project/alpha", "beta"}, tags)
}

func TestTokenize_TagNotMatchedAfterWordChar(t *testing.T) {
	tokens, _, _ := Tokenize("see issue#42 here")
	for _, tok := range tokens {
		require.NotEqual(t, KindTag, tok.Kind)
	}
}

func TestTokenize_TagInsideWikiLinkSuppressed(t *testing.T) {
	tokens, _, _ := Tokenize("[[#heading]]")
	for _, tok := range tokens {
		require.NotEqual(t, KindTag, tok.Kind)
	}
}

func TestTokenize_FootnoteDefinitionAndReference(t *testing.T) {
	tokens, _, _ := Tokenize("Body text[^note1].\n\n[^note1]: The footnote body.")
	var kinds []Kind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, KindFootnoteReference)
	require.Contains(t, kinds, KindFootnoteDefinition)
}

func TestTokenize_FencedCodeSuppressesInlineTokens(t *testing.T) {
	text := "```\n[[Not A Link]]\n#not-a-tag\n```\n"
	tokens, fences, _ := Tokenize(text)
	require.Len(t, fences, 1)
	require.Equal(t, 0, fences[0].StartLine)
	require.Equal(t, 3, fences[0].EndLine)
	for _, tok := range tokens {
		require.NotEqual(t, KindWikiLink, tok.Kind)
		require.NotEqual(t, KindTag, tok.Kind)
	}
}

func TestTokenizeWithOptions_CodeblockInclusion(t *testing.T) {
	text := "```\n[[A Link]]\n#a-tag\n```\n"

	tokens, _, _ := TokenizeWithOptions(text, Options{TagsInCode: true, ReferencesInCode: true})
	var kinds []Kind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, KindWikiLink)
	require.Contains(t, kinds, KindTag)

	tagOnly, _, _ := TokenizeWithOptions(text, Options{TagsInCode: true})
	kinds = nil
	for _, tok := range tagOnly {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, KindTag)
	require.NotContains(t, kinds, KindWikiLink)
}

func TestTokenize_FrontmatterAliases(t *testing.T) {
	text := "---\naliases:\n  - Old Name\n  - Other Name\n---\n\n# Body\n"
	_, _, aliases := Tokenize(text)
	require.Equal(t, []string{"Old Name", "Other Name"}, aliases)
}

func TestTokenize_NoWikiLinkAcrossNestedBracket(t *testing.T) {
	tokens, _, _ := Tokenize("[[Outer [Inner]] stays unmatched")
	for _, tok := range tokens {
		require.NotEqual(t, KindWikiLink, tok.Kind)
	}
}

func TestTokenize_MultipleWikiLinksSameLine(t *testing.T) {
	tokens, _, _ := Tokenize("[[A]] and [[B]] and [[C]]")
	var paths []string
	for _, tok := range tokens {
		if tok.Kind == KindWikiLink {
			paths = append(paths, tok.Wiki.Path)
		}
	}
	require.Equal(t, []string{"A", "B", "C"}, paths)
}

func TestTokenize_EmptyInput(t *testing.T) {
	tokens, fences, aliases := Tokenize("")
	require.Empty(t, tokens)
	require.Empty(t, fences)
	require.Empty(t, aliases)
}
