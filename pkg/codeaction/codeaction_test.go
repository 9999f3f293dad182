package codeaction_test

import (
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/codeaction"
	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/vaultindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildVault(t *testing.T, files map[string]string) *vaultindex.Vault {
	t.Helper()
	v := vaultindex.New("", nil)
	for path, text := range files {
		v.InstallFile(vaultindex.ParseFile(path, path, text, time.Now(), false))
	}
	return v
}

func TestRenameFile_RewritesWikiLinks(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Old.md":  "# Old\n",
		"Home.md": "See [[Old]] and [[Old|a note]].\n",
	})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{StripMdSuffix: true})

	edit := eng.RenameFile("Old.md", "New.md")
	require.Len(t, edit.FileOps, 1)
	assert.Equal(t, "Old.md", edit.FileOps[0].OldPath)
	assert.Equal(t, "New.md", edit.FileOps[0].NewPath)

	edits := edit.Edits["Home.md"]
	require.Len(t, edits, 2)
	assert.Equal(t, "[[New]]", edits[0].NewText)
	assert.Equal(t, "[[New|a note]]", edits[1].NewText)
}

func TestRenameFile_PreservesLiteralMdSuffix(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Old.md":  "# Old\n",
		"Home.md": "See [[Old.md]] and [[Old]].\n",
	})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{StripMdSuffix: true})

	edit := eng.RenameFile("Old.md", "New.md")
	edits := edit.Edits["Home.md"]
	require.Len(t, edits, 2)
	assert.Equal(t, "[[New.md]]", edits[0].NewText)
	assert.Equal(t, "[[New]]", edits[1].NewText)
}

func TestRenameFile_RoundTripIsIdempotent(t *testing.T) {
	v := buildVault(t, map[string]string{
		"Old.md":  "# Old\n",
		"Home.md": "See [[Old.md]] and [[Old|a note]].\n",
	})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{StripMdSuffix: true})

	renamed := eng.RenameFile("Old.md", "New.md")
	renamedText := renamed.Edits["Home.md"]
	require.Len(t, renamedText, 2)

	v2 := buildVault(t, map[string]string{
		"New.md":  "# Old\n",
		"Home.md": renamedText[0].NewText + " and " + renamedText[1].NewText + ".\n",
	})
	res2 := resolver.New(v2, nil)
	eng2 := codeaction.New(v2, res2, resolver.Options{StripMdSuffix: true})

	back := eng2.RenameFile("New.md", "Old.md")
	backText := back.Edits["Home.md"]
	require.Len(t, backText, 2)
	assert.Equal(t, "[[Old.md]]", backText[0].NewText)
	assert.Equal(t, "[[Old|a note]]", backText[1].NewText)
}

func TestRenameTag_RewritesDescendants(t *testing.T) {
	v := buildVault(t, map[string]string{
		"A.md": "#project and #project/alpha and #projectile",
	})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{})

	edit := eng.RenameTag("project", "initiative")
	edits := edit.Edits["A.md"]
	require.Len(t, edits, 2)
	assert.Equal(t, "#initiative", edits[0].NewText)
	assert.Equal(t, "#initiative/alpha", edits[1].NewText)
}

func TestCreateFileForUnresolvedLink_TitleHeading(t *testing.T) {
	v := buildVault(t, map[string]string{})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{})
	eng.TitleHeadings = true

	edit := eng.CreateFileForUnresolvedLink("Projects", "New Idea")
	require.Len(t, edit.FileOps, 1)
	assert.Equal(t, "Projects/New Idea.md", edit.FileOps[0].NewPath)
	assert.Equal(t, "# New Idea\n", edit.FileOps[0].Content)
}

func TestAppendHeadingToFile_ExistingFile(t *testing.T) {
	v := buildVault(t, map[string]string{"A.md": "# Intro\ntext"})
	res := resolver.New(v, nil)
	eng := codeaction.New(v, res, resolver.Options{})

	edit := eng.AppendHeadingToFile("A.md", "Next Section")
	edits := edit.Edits["A.md"]
	require.Len(t, edits, 1)
	assert.Equal(t, "\n# Next Section\n", edits[0].NewText)
}
