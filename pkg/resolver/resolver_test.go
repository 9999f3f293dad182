package resolver_test

import (
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/vaultindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelTagRef(path, tag string) model.Reference {
	return model.Reference{Kind: model.RefTag, Path: path, TagName: tag}
}

func buildVault(t *testing.T, files map[string]string) *vaultindex.Vault {
	t.Helper()
	v := vaultindex.New("", nil)
	for path, text := range files {
		v.InstallFile(vaultindex.ParseFile(path, path, text, time.Now(), false))
	}
	return v
}

func TestResolveTarget_ExactPath(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Projects/Roadmap.md": "# Roadmap\ncontent",
	})
	r := resolver.New(v, nil)

	got := r.ResolveTarget("Other.md", "Projects/Roadmap", "", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Projects/Roadmap.md", got[0].Path)
}

func TestResolveTarget_BasenameCasePolicy(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Notes/MyIdea.md": "# MyIdea\n",
	})
	r := resolver.New(v, nil)

	t.Run("ignore matches regardless of case", func(t *testing.T) {
		got := r.ResolveTarget("x.md", "myidea", "", "", resolver.Options{CaseMatching: resolver.CaseIgnore, StripMdSuffix: true})
		require.Len(t, got, 1)
		assert.Equal(t, "Notes/MyIdea.md", got[0].Path)
	})

	t.Run("respect requires exact case", func(t *testing.T) {
		got := r.ResolveTarget("x.md", "myidea", "", "", resolver.Options{CaseMatching: resolver.CaseRespect, StripMdSuffix: true})
		require.Len(t, got, 1)
		assert.Equal(t, got[0].Kind.String(), "UnresolvedFile")
	})

	t.Run("smart falls back to case-insensitive when query is lowercase", func(t *testing.T) {
		got := r.ResolveTarget("x.md", "myidea", "", "", resolver.Options{CaseMatching: resolver.CaseSmart, StripMdSuffix: true})
		require.Len(t, got, 1)
		assert.Equal(t, "Notes/MyIdea.md", got[0].Path)
	})

	t.Run("smart requires exact case when query has an uppercase letter", func(t *testing.T) {
		got := r.ResolveTarget("x.md", "MyIDEA", "", "", resolver.Options{CaseMatching: resolver.CaseSmart, StripMdSuffix: true})
		require.Len(t, got, 1)
		assert.Equal(t, "UnresolvedFile", got[0].Kind.String())
	})
}

func TestResolveTarget_UnresolvedFile(t *testing.T) {
	v := buildVault(t, map[string]string{"A.md": "a"})
	r := resolver.New(v, nil)

	got := r.ResolveTarget("A.md", "Nonexistent", "", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, got, 1)
	assert.Equal(t, "UnresolvedFile", got[0].Kind.String())
	assert.Equal(t, "Nonexistent", got[0].Path)
}

func TestResolveTarget_HeadingAndMissingHeading(t *testing.T) {
	v := buildVault(t, map[string]string{
		"A.md": "# Intro\ntext\n## Details\nmore",
	})
	r := resolver.New(v, nil)

	got := r.ResolveTarget("x.md", "A", "Details", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Heading", got[0].Kind.String())

	missing := r.ResolveTarget("x.md", "A", "Nope", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, missing, 1)
	assert.Equal(t, "UnresolvedHeading", missing[0].Kind.String())
}

func TestResolveTarget_SameFileFragment(t *testing.T) {
	v := buildVault(t, map[string]string{
		"A.md": "# Intro\nSome text. ^anchor\n",
	})
	r := resolver.New(v, nil)

	got := r.ResolveTarget("A.md", "", "", "anchor", resolver.Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "IndexedBlock", got[0].Kind.String())
	assert.Equal(t, "A.md", got[0].Path)
}

func TestResolveTarget_Alias(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Notes/Real.md": "---\naliases: [\"Nickname\"]\n---\n# Real\n",
	})
	r := resolver.New(v, nil)

	got := r.ResolveTarget("x.md", "Nickname", "", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Notes/Real.md", got[0].Path)
}

type fixedDateResolver struct {
	path string
	ok   bool
}

func (f fixedDateResolver) ResolveDatePhrase(string) (string, bool) { return f.path, f.ok }

func TestResolveTarget_DailyDateSubstitution(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Daily/2024-01-15.md": "# 2024-01-15\n",
	})
	r := resolver.New(v, fixedDateResolver{path: "Daily/2024-01-15.md", ok: true})

	got := r.ResolveTarget("x.md", "today", "", "", resolver.Options{StripMdSuffix: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Daily/2024-01-15.md", got[0].Path)
}

func TestResolve_Tag(t *testing.T) {
	v := buildVault(t, map[string]string{
		"A.md": "#project/alpha note",
	})
	r := resolver.New(v, nil)

	got := r.Resolve(modelTagRef("A.md", "project/alpha"), resolver.Options{})
	require.Len(t, got, 2)
	assert.Equal(t, "Tag", got[0].Kind.String())
	assert.Equal(t, "#project/alpha", got[0].Refname, "the tag itself comes first, most specific")
	assert.Equal(t, "#project", got[1].Refname, "ancestor prefixes follow")
}
