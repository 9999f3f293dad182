// Package dateparse parses fuzzy natural-language date phrases against
// a configured daily-note format, and renders Go times back through
// either a strftime pattern or Obsidian's Moment.js-flavoured format
// vocabulary.
package dateparse

import (
	"path"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Config is the slice of daily-notes configuration the parser needs:
// where daily notes live and how their filenames are formatted.
type Config struct {
	// Folder is the vault-relative folder daily notes are created in;
	// empty means the vault root.
	Folder string

	// Format is a strftime pattern such as "%Y-%m-%d" or a Moment.js-style
	// pattern such as "YYYY-MM-DD"; empty renders as "YYYY-MM-DD".
	Format string
}

// Parser resolves date phrases ("today", "next friday", "2024-03-01")
// into the daily-note path they name.
type Parser struct {
	cfg Config
	w   *when.Parser
}

// New constructs a Parser. It composes the English common-phrase rules
// (today/tomorrow/yesterday, weekdays, relative durations) with the
// casual parser's base rule set, the same combination olebedev/when's
// own examples use for free-text date extraction.
func New(cfg Config) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{cfg: cfg, w: w}
}

// ParsePhrase parses phrase against now and reports the date it names.
// The match must cover the entire (trimmed) phrase — a file named
// "Tuesday Standup Notes" should not spuriously resolve as a date — so
// phrase is intended to be a short link target, not arbitrary prose.
func (p *Parser) ParsePhrase(phrase string, now time.Time) (time.Time, bool) {
	trimmed := strings.TrimSpace(phrase)
	if trimmed == "" {
		return time.Time{}, false
	}

	r, err := p.w.Parse(trimmed, now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	if !strings.EqualFold(strings.TrimSpace(r.Text), trimmed) {
		return time.Time{}, false
	}
	return r.Time, true
}

// ResolveDatePhrase implements resolver.DatePhraseResolver: it parses
// phrase against the current moment and, if it names a date, returns
// the daily-note path for that date.
func (p *Parser) ResolveDatePhrase(phrase string) (string, bool) {
	return p.ResolveAt(phrase, time.Now())
}

// ResolveAt is ResolveDatePhrase with an explicit "now", for deterministic tests.
func (p *Parser) ResolveAt(phrase string, now time.Time) (string, bool) {
	t, ok := p.ParsePhrase(phrase, now)
	if !ok {
		return "", false
	}
	return p.FilenameFor(t), true
}

// FilenameFor renders the daily-note path for a given date.
func (p *Parser) FilenameFor(t time.Time) string {
	format := p.cfg.Format
	if format == "" {
		format = "YYYY-MM-DD"
	}
	name := FormatMomentPattern(format, t) + ".md"
	if p.cfg.Folder == "" {
		return name
	}
	return path.Join(p.cfg.Folder, name)
}
