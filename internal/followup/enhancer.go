package followup

import (
	"regexp"
	"strings"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// MaxEntities caps the context annotation appended to a follow-up
const MaxEntities = 4

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(their|them|they|this|that|it|those|these)\b`),
	regexp.MustCompile(`(?i)\b(mentioned|above|previous|earlier|said|listed)\b`),
	regexp.MustCompile(`(?i)\b(explain|elaborate|tell me more|details?|more about)\b`),
	regexp.MustCompile(`(?i)^\s*(and|but|also|what about|how about|why)\b`),
	regexp.MustCompile(`(?i)\bcritical\b`),
}

// EntityExtractor pulls candidate entities out of an assistant answer
type EntityExtractor interface {
	Extract(text string) []string
}

// Enhancer rewrites ambiguous follow-up questions with entities from the
// previous answer. It only ever changes the retrieval query.
type Enhancer struct {
	extractor EntityExtractor
}

// New creates an enhancer; a nil extractor uses the regex extractor over the product list
func New(extractor EntityExtractor) *Enhancer {
	if extractor == nil {
		extractor = NewRegexExtractor(types.Products)
	}
	return &Enhancer{extractor: extractor}
}

// Enhance returns message, annotated with context entities when it reads as
// a follow-up to the last assistant turn
func (e *Enhancer) Enhance(message string, history []types.Turn) string {
	if len(history) == 0 || !IsFollowUp(message) {
		return message
	}

	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleAssistant {
			last = history[i].Content
			break
		}
	}
	if last == "" {
		return message
	}

	entities := e.extractor.Extract(last)
	if len(entities) == 0 {
		return message
	}
	if len(entities) > MaxEntities {
		entities = entities[:MaxEntities]
	}
	return message + " (context: " + strings.Join(entities, ", ") + ")"
}

// IsFollowUp reports whether message matches any follow-up pattern
func IsFollowUp(message string) bool {
	for _, p := range followUpPatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}
