package dateparse

import (
	"fmt"
	"strings"
	"time"
)

// FormatMomentPattern renders t using an Obsidian/Moment.js-style format
// string (the vocabulary Obsidian's daily-notes core plugin exposes to
// users), translating it to Go's reference-time layout before calling
// time.Format. Bracketed text ("[Log]") is preserved literally. Curly
// braces around the whole pattern are legacy decoration some vaults
// carry over from older daily-note plugins and are stripped, not
// treated as format tokens. A pattern containing '%' is read as a
// strftime pattern instead (%Y %y %m %d %B %b %A %a %H %M %S %%), which
// is how the default "%Y-%m-%d" setting is rendered.
func FormatMomentPattern(pattern string, t time.Time) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return t.Format("2006-01-02")
	}
	if strings.Contains(pattern, "%") {
		r := strings.NewReplacer("%Y", "2006", "%y", "06", "%m", "01", "%d", "02",
			"%B", "January", "%b", "Jan", "%A", "Monday", "%a", "Mon",
			"%H", "15", "%M", "04", "%S", "05", "%%", "%")
		return t.Format(r.Replace(pattern))
	}

	body, literals := extractLiteralBlocks(pattern)
	layout := momentToGoLayout(body)
	out := t.Format(layout)

	for placeholder, literal := range literals {
		out = strings.ReplaceAll(out, placeholder, literal)
	}
	return out
}

// extractLiteralBlocks pulls "[...]" spans out of a pattern, replacing
// each with a NUL-delimited placeholder unlikely to collide with any
// rendered date text, and strips bare '{'/'}' characters (format sugar
// some legacy patterns wrap the whole string in).
func extractLiteralBlocks(pattern string) (body string, literals map[string]string) {
	literals = make(map[string]string)
	var out, cur strings.Builder
	inLiteral := false
	n := 0

	for _, r := range pattern {
		switch r {
		case '[':
			if inLiteral {
				cur.WriteRune(r)
				continue
			}
			inLiteral = true
			cur.Reset()
		case ']':
			if !inLiteral {
				out.WriteRune(r)
				continue
			}
			inLiteral = false
			placeholder := fmt.Sprintf("\x00L%d\x00", n)
			n++
			literals[placeholder] = cur.String()
			out.WriteString(placeholder)
		case '{', '}':
			if inLiteral {
				cur.WriteRune(r)
			}
		default:
			if inLiteral {
				cur.WriteRune(r)
			} else {
				out.WriteRune(r)
			}
		}
	}
	if inLiteral {
		out.WriteByte('[')
		out.WriteString(cur.String())
	}
	return out.String(), literals
}

// momentTokens maps the Moment.js tokens Obsidian's daily-notes plugin
// actually documents to their Go reference-time equivalent. Longer
// tokens are tried before their prefixes (momentTokenOrder) so "MMMM"
// isn't shadowed by "MM".
var momentTokens = map[string]string{
	"YYYY": "2006",
	"YY":   "06",
	"MMMM": "January",
	"MMM":  "Jan",
	"MM":   "01",
	"M":    "1",
	"DD":   "02",
	"D":    "2",
	"dddd": "Monday",
	"ddd":  "Mon",
	"HH":   "15",
	"H":    "15",
	"hh":   "03",
	"h":    "3",
	"mm":   "04",
	"m":    "4",
	"ss":   "05",
	"s":    "5",
	"A":    "PM",
	"a":    "pm",
	"ZZ":   "-0700",
	"Z":    "-07:00",
	"z":    "MST",
}

var momentTokenOrder = []string{
	"YYYY", "MMMM", "dddd", "MMM", "ddd",
	"YY", "MM", "DD", "HH", "hh", "mm", "ss", "ZZ",
	"M", "D", "H", "h", "m", "s", "A", "a", "Z", "z",
}

func momentToGoLayout(pattern string) string {
	var out strings.Builder
	i := 0
	for i < len(pattern) {
		matched := false
		for _, tok := range momentTokenOrder {
			if i+len(tok) <= len(pattern) && pattern[i:i+len(tok)] == tok {
				out.WriteString(momentTokens[tok])
				i += len(tok)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		out.WriteByte(pattern[i])
		i++
	}
	return out.String()
}
