package types

import "strings"

// Products is the closed list of product names feedback can be attributed to
var Products = []string{
	"workers",
	"workers-ai",
	"pages",
	"r2",
	"d1",
	"kv",
	"durable-objects",
	"queues",
	"images",
	"vectorize",
}

// ParseProduct returns the canonical product name, or "" when s is not a known product
func ParseProduct(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Products {
		if p == s {
			return p
		}
	}
	return ""
}
