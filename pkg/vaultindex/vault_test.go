package vaultindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/model"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRebuild_IndexesFilesAndReferenceables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Project.md", "# Project\n\nLinks to [[Task]] and #planning.\n")
	writeFile(t, root, "Task.md", "# Task\n\nSome task body. ^block-1\n")

	v := New(root, nil)
	require.NoError(t, v.Rebuild())

	require.Len(t, v.AllFiles(), 2)

	fileRefs := v.QueryByRefname("Project")
	require.Len(t, fileRefs, 1)
	require.Equal(t, model.KindFile, fileRefs[0].Kind)

	headingRefs := v.QueryByRefname("Task.md#Task")
	require.Len(t, headingRefs, 1)
	require.Equal(t, model.KindHeading, headingRefs[0].Kind)

	blockRefs := v.QueryByRefname("Task.md#^block-1")
	require.Len(t, blockRefs, 1)

	tagRefs := v.QueryByTagPrefix("planning")
	require.Len(t, tagRefs, 1)
}

func TestRebuild_IgnoresNonMarkdownAndIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Note.md", "# Note\n")
	writeFile(t, root, "image.png", "binary")
	writeFile(t, root, ".obsidian/workspace.json", "{}")

	v := New(root, []string{".obsidian"})
	require.NoError(t, v.Rebuild())

	require.Len(t, v.AllFiles(), 1)
	_, ok := v.File(".obsidian/workspace.json")
	require.False(t, ok)
}

func TestInstallFile_ReplacesAndReindexes(t *testing.T) {
	root := t.TempDir()
	v := New(root, nil)

	pf := ParseFile(filepath.Join(root, "A.md"), "A.md", "# One\n", time.Now(), true)
	v.InstallFile(pf)
	require.Len(t, v.HeadingsIn("A.md"), 1)
	require.Equal(t, "One", v.HeadingsIn("A.md")[0].HeadingText)

	pf2 := ParseFile(filepath.Join(root, "A.md"), "A.md", "# Two\n", time.Now(), true)
	v.InstallFile(pf2)
	require.Len(t, v.HeadingsIn("A.md"), 1)
	require.Equal(t, "Two", v.HeadingsIn("A.md")[0].HeadingText)
}

func TestRemoveFile_DropsReferenceables(t *testing.T) {
	root := t.TempDir()
	v := New(root, nil)
	v.InstallFile(ParseFile(filepath.Join(root, "A.md"), "A.md", "# One\n", time.Now(), true))
	require.Len(t, v.AllFiles(), 1)

	v.RemoveFile("A.md")
	require.Empty(t, v.AllFiles())
	require.Empty(t, v.QueryByRefname("A"))
}

func TestResolveAlias(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Real.md", "---\naliases:\n  - Nickname\n---\n\n# Real\n")

	v := New(root, nil)
	require.NoError(t, v.Rebuild())

	path, ok := v.ResolveAlias("nickname")
	require.True(t, ok)
	require.Equal(t, "Real.md", path)

	_, ok = v.ResolveAlias("missing")
	require.False(t, ok)
}

func TestQueryByBasename_CaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "folder/Deep Note.md", "# Deep\n")

	v := New(root, nil)
	require.NoError(t, v.Rebuild())

	refs := v.QueryByBasename("deep note")
	require.Len(t, refs, 1)
}

func TestAllLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A.md", "line one\nline two\n")

	v := New(root, nil)
	require.NoError(t, v.Rebuild())

	lines := v.AllLines()
	require.Len(t, lines, 3) // trailing empty line after final \n
	require.Equal(t, "line one", lines[0].Text)
	require.Equal(t, "A.md", lines[0].Path)
}

