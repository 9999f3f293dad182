// Package config loads moxide's layered configuration: Obsidian's own
// vault settings first, then the user's global TOML settings, then the
// vault-local TOML override, each layer taking precedence over the
// last.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/atomicobject/moxide/pkg/resolver"
	"github.com/atomicobject/moxide/pkg/token"
	"github.com/spf13/viper"
)

// TransclusionLength is either "Full" or a bounded "Partial{n}".
type TransclusionLength struct {
	Full    bool
	Partial int
}

// Config holds every recognised setting, after merging all three
// layers and applying defaults.
type Config struct {
	DailyNote                 string `mapstructure:"dailynote"`
	HeadingCompletions         bool   `mapstructure:"heading_completions"`
	TitleHeadings              bool   `mapstructure:"title_headings"`
	UnresolvedDiagnostics      bool   `mapstructure:"unresolved_diagnostics"`
	SemanticTokens             bool   `mapstructure:"semantic_tokens"`
	TagsInCodeblocks           bool   `mapstructure:"tags_in_codeblocks"`
	ReferencesInCodeblocks     bool   `mapstructure:"references_in_codeblocks"`
	NewFileFolderPath          string `mapstructure:"new_file_folder_path"`
	DailyNotesFolder           string `mapstructure:"daily_notes_folder"`
	IncludeMdExtensionMdLink   bool   `mapstructure:"include_md_extension_md_link"`
	IncludeMdExtensionWikilink bool   `mapstructure:"include_md_extension_wikilink"`
	Hover                      bool   `mapstructure:"hover"`
	CaseMatching               string `mapstructure:"case_matching"`
	InlayHints                 bool   `mapstructure:"inlay_hints"`
	BlockTransclusion          bool   `mapstructure:"block_transclusion"`
	BlockTransclusionLength    string `mapstructure:"block_transclusion_length"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		DailyNote:                  "%Y-%m-%d",
		HeadingCompletions:         true,
		TitleHeadings:              true,
		UnresolvedDiagnostics:      true,
		SemanticTokens:             true,
		TagsInCodeblocks:           true,
		ReferencesInCodeblocks:     true,
		NewFileFolderPath:          "",
		DailyNotesFolder:           "",
		IncludeMdExtensionMdLink:   false,
		IncludeMdExtensionWikilink: false,
		Hover:                      true,
		CaseMatching:               "Smart",
		InlayHints:                 true,
		BlockTransclusion:          true,
		BlockTransclusionLength:    "Full",
	}
}

// Load merges, in increasing precedence:
//  1. Obsidian's own app.json / daily-notes.json (read directly, since
//     they are not TOML and viper has no first-class reader for them).
//  2. ~/.config/moxide/settings.toml
//  3. <vault>/.moxide.toml
//
// Keys that match no Config field are logged and ignored.
func Load(vaultPath string) (*Config, error) {
	cfg := Default()

	applyObsidianSettings(vaultPath, cfg)

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, cfg)

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".config", "moxide", "settings.toml")
		if err := mergeFile(v, globalPath); err != nil {
			return nil, err
		}
	}

	localPath := filepath.Join(vaultPath, ".moxide.toml")
	if err := mergeFile(v, localPath); err != nil {
		return nil, err
	}

	known := make(map[string]bool)
	ct := reflect.TypeOf(Config{})
	for i := 0; i < ct.NumField(); i++ {
		known[ct.Field(i).Tag.Get("mapstructure")] = true
	}
	for _, key := range v.AllKeys() {
		if !known[key] {
			log.Printf("config: ignoring unknown key %q", key)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal merged config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("dailynote", cfg.DailyNote)
	v.SetDefault("heading_completions", cfg.HeadingCompletions)
	v.SetDefault("title_headings", cfg.TitleHeadings)
	v.SetDefault("unresolved_diagnostics", cfg.UnresolvedDiagnostics)
	v.SetDefault("semantic_tokens", cfg.SemanticTokens)
	v.SetDefault("tags_in_codeblocks", cfg.TagsInCodeblocks)
	v.SetDefault("references_in_codeblocks", cfg.ReferencesInCodeblocks)
	v.SetDefault("new_file_folder_path", cfg.NewFileFolderPath)
	v.SetDefault("daily_notes_folder", cfg.DailyNotesFolder)
	v.SetDefault("include_md_extension_md_link", cfg.IncludeMdExtensionMdLink)
	v.SetDefault("include_md_extension_wikilink", cfg.IncludeMdExtensionWikilink)
	v.SetDefault("hover", cfg.Hover)
	v.SetDefault("case_matching", cfg.CaseMatching)
	v.SetDefault("inlay_hints", cfg.InlayHints)
	v.SetDefault("block_transclusion", cfg.BlockTransclusion)
	v.SetDefault("block_transclusion_length", cfg.BlockTransclusionLength)
}

// mergeFile reads path, if it exists, on top of whatever v already has.
func mergeFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyObsidianSettings folds Obsidian's own JSON config into cfg
// before the TOML layers are merged on top, per the documented
// precedence: Obsidian settings are the weakest layer.
func applyObsidianSettings(vaultPath string, cfg *Config) {
	type appJSON struct {
		NewFileFolderPath string `json:"newFileLocation"`
	}
	var app appJSON
	if readJSON(filepath.Join(vaultPath, ".obsidian", "app.json"), &app) {
		if app.NewFileFolderPath != "" {
			cfg.NewFileFolderPath = app.NewFileFolderPath
		}
	}

	type dailyNotesJSON struct {
		Format string `json:"format"`
		Folder string `json:"folder"`
	}
	var daily dailyNotesJSON
	if readJSON(filepath.Join(vaultPath, ".obsidian", "daily-notes.json"), &daily) {
		if daily.Format != "" {
			cfg.DailyNote = daily.Format
		}
		if daily.Folder != "" {
			cfg.DailyNotesFolder = daily.Folder
		}
	}
}

func readJSON(path string, dst interface{}) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(content, dst) == nil
}

// CaseMatchingPolicy maps the configured string to the resolver's enum,
// defaulting to CaseSmart for an unrecognised value.
func (c *Config) CaseMatchingPolicy() resolver.CaseMatching {
	switch strings.ToLower(c.CaseMatching) {
	case "ignore":
		return resolver.CaseIgnore
	case "respect":
		return resolver.CaseRespect
	default:
		return resolver.CaseSmart
	}
}

// ResolverOptions builds the resolver.Options this config implies.
// StripMdSuffix is unconditional: a reference's text may carry a
// literal ".md" regardless of what this server itself writes when it
// creates new links, so resolution always tolerates it.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		CaseMatching:  c.CaseMatchingPolicy(),
		StripMdSuffix: true,
	}
}

// TokenOptions builds the tokenizer Options this config implies,
// governing whether tags and references inside fenced code blocks are
// still recognised.
func (c *Config) TokenOptions() token.Options {
	return token.Options{
		TagsInCode:       c.TagsInCodeblocks,
		ReferencesInCode: c.ReferencesInCodeblocks,
	}
}

// ParseTransclusionLength parses "Full" or "Partial{n}" per the
// documented block_transclusion_length grammar.
func ParseTransclusionLength(s string) TransclusionLength {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Full") || s == "" {
		return TransclusionLength{Full: true}
	}
	if strings.HasPrefix(s, "Partial{") && strings.HasSuffix(s, "}") {
		n, err := strconv.Atoi(s[len("Partial{") : len(s)-1])
		if err == nil && n > 0 {
			return TransclusionLength{Partial: n}
		}
	}
	return TransclusionLength{Full: true}
}
