package followup

import (
	"regexp"
	"strings"
)

const maxEmphasized = 3

var (
	// a capitalized phrase followed by a parenthesized tier: "Acme Corp (enterprise, $250k ARR)"
	customerPattern = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.'-]*(?:[ \t][A-Z][A-Za-z0-9&.'-]*){0,4})\**[ \t]*\((?i:enterprise|pro|free)\b`)
	boldPattern     = regexp.MustCompile(`\*\*([^*\n]{2,60})\*\*`)
	tierWords       = map[string]bool{"enterprise": true, "pro": true, "free": true, "unknown": true}
)

// RegexExtractor finds customers, product names and bolded phrases
type RegexExtractor struct {
	products []string
}

func NewRegexExtractor(products []string) *RegexExtractor {
	return &RegexExtractor{products: products}
}

// Extract returns entities in order: customers, products, emphasized phrases.
// Duplicates are dropped case-insensitively.
func (x *RegexExtractor) Extract(text string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	for _, m := range customerPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	lower := strings.ToLower(text)
	for _, p := range x.products {
		if strings.Contains(lower, strings.ToLower(p)) {
			add(p)
		}
	}

	emphasized := 0
	for _, m := range boldPattern.FindAllStringSubmatch(text, -1) {
		if emphasized == maxEmphasized {
			break
		}
		phrase := strings.TrimSpace(m[1])
		if tierWords[strings.ToLower(phrase)] {
			continue
		}
		before := len(out)
		add(phrase)
		if len(out) > before {
			emphasized++
		}
	}

	return out
}
