package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/moxide/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "%Y-%m-%d", cfg.DailyNote)
	assert.Equal(t, "Smart", cfg.CaseMatching)
	assert.True(t, cfg.Hover)
}

func TestLoad_VaultOverrideWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".moxide.toml"), []byte(`
case_matching = "Respect"
hover = false
`), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Respect", cfg.CaseMatching)
	assert.False(t, cfg.Hover)
}

func TestLoad_ObsidianDailyNotesSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".obsidian", "daily-notes.json"), []byte(`{"format":"YYYY/MM/DD","folder":"Daily"}`), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "YYYY/MM/DD", cfg.DailyNote)
	assert.Equal(t, "Daily", cfg.DailyNotesFolder)
}

func TestTokenOptions_ReflectsCodeblockFlags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".moxide.toml"), []byte(`
tags_in_codeblocks = false
references_in_codeblocks = true
`), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	opts := cfg.TokenOptions()
	assert.False(t, opts.TagsInCode)
	assert.True(t, opts.ReferencesInCode)
}

func TestParseTransclusionLength(t *testing.T) {
	assert.True(t, config.ParseTransclusionLength("Full").Full)
	assert.Equal(t, 50, config.ParseTransclusionLength("Partial{50}").Partial)
	assert.True(t, config.ParseTransclusionLength("garbage").Full)
}
