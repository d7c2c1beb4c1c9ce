package enrich

import (
	"strings"
	"unicode"
)

// Categories a document can be filed under.
const (
	CategoryFinancial   = "Financial"
	CategoryMedical     = "Medical"
	CategoryLegal       = "Legal"
	CategoryEducational = "Educational"
	CategoryOthers      = "Others"
)

var categories = []string{CategoryFinancial, CategoryMedical, CategoryLegal, CategoryEducational, CategoryOthers}

// NormalizeCategory maps a model answer onto the closed category set.
// An exact match wins; otherwise the answer must mention exactly one
// category word. Anything else is Others.
func NormalizeCategory(raw string) string {
	clean := strings.TrimFunc(Sanitize(raw), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, c := range categories {
		if strings.EqualFold(clean, c) {
			return c
		}
	}

	words := strings.FieldsFunc(clean, func(r rune) bool { return !unicode.IsLetter(r) })
	match := ""
	for _, w := range words {
		for _, c := range categories {
			if strings.EqualFold(w, c) && match != c {
				if match != "" {
					return CategoryOthers
				}
				match = c
			}
		}
	}
	if match == "" {
		return CategoryOthers
	}
	return match
}

// IsCategory reports whether s is one of the canonical categories.
func IsCategory(s string) bool {
	for _, c := range categories {
		if s == c {
			return true
		}
	}
	return false
}

func normalizeSubCategory(raw string) string {
	clean := strings.TrimRight(Sanitize(raw), ".")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return FallbackSubCategory
	}
	return clean
}

func parseQueries(raw string) []string {
	out := make([]string, 0, MaxSuggestedQueries)
	for _, line := range strings.Split(raw, "\n") {
		line = Sanitize(stripListMarker(line))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxSuggestedQueries {
			break
		}
	}
	return out
}

// stripListMarker removes "1.", "2)", "-" or "*" list prefixes.
func stripListMarker(line string) string {
	line = strings.TrimSpace(line)
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:])
	}
	return line
}
