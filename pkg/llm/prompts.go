package llm

import (
	"os"
	"strings"
)

// TemplateFromEnv returns the template in the env var key, or def when unset
func TemplateFromEnv(key, def string) string {
	if custom := os.Getenv(key); custom != "" {
		return custom
	}
	return def
}

// RenderTemplate replaces {PLACEHOLDER} keys in template with their values
func RenderTemplate(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

const sentimentSystemPrompt = `You score the sentiment of customer feedback.
Return only a JSON object {"positive": p, "negative": n} where p and n are probabilities between 0 and 1 that sum to 1.`
