package token

import "gopkg.in/yaml.v3"

// ParseFrontmatterAliases parses the raw lines inside a "---" frontmatter
// block and returns its "aliases" field normalized to a string slice.
// Mirrors pkg/obsidian/tags.go's ExtractFrontmatter / normalizeTags,
// narrowed to the one field the resolver needs.
func ParseFrontmatterAliases(raw string) []string {
	if raw == "" {
		return nil
	}
	var fm map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil || fm == nil {
		return nil
	}
	aliases, ok := fm["aliases"]
	if !ok {
		return nil
	}
	return normalizeStringList(aliases)
}

func normalizeStringList(v interface{}) []string {
	var result []string
	switch t := v.(type) {
	case string:
		if t != "" {
			result = append(result, t)
		}
	case []interface{}:
		for _, item := range t {
			switch s := item.(type) {
			case string:
				if s != "" {
					result = append(result, s)
				}
			case []interface{}:
				result = append(result, normalizeStringList(s)...)
			}
		}
	}
	return result
}
