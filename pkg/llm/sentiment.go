package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// PromptSentimentClassifier derives POSITIVE/NEGATIVE scores from a generation model,
// for providers without a dedicated sentiment model.
type PromptSentimentClassifier struct {
	provider Provider
}

// NewPromptSentimentClassifier wraps a generation provider
func NewPromptSentimentClassifier(p Provider) *PromptSentimentClassifier {
	return &PromptSentimentClassifier{provider: p}
}

// ClassifySentiment asks the model for a probability pair and parses it
func (c *PromptSentimentClassifier) ClassifySentiment(ctx context.Context, text string) ([]SentimentScore, error) {
	answer, err := c.provider.Generate(ctx, []Message{
		{Role: "system", Content: sentimentSystemPrompt},
		{Role: "user", Content: text},
	}, 50)
	if err != nil {
		return nil, err
	}
	return ParseSentimentPair(answer)
}

// ParseSentimentPair extracts {"positive":p,"negative":n} from a model answer
func ParseSentimentPair(answer string) ([]SentimentScore, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in %q", types.ErrParseFailure, answer)
	}

	var pair struct {
		Positive *float64 `json:"positive"`
		Negative *float64 `json:"negative"`
	}
	if err := json.Unmarshal([]byte(answer[start:end+1]), &pair); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParseFailure, err)
	}
	if pair.Positive == nil || pair.Negative == nil {
		return nil, fmt.Errorf("%w: missing positive/negative", types.ErrParseFailure)
	}

	return []SentimentScore{
		{Label: "POSITIVE", Score: *pair.Positive},
		{Label: "NEGATIVE", Score: *pair.Negative},
	}, nil
}
