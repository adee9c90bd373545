package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Shubhamjha-sj/signal/pkg/llm"
	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Themes is the closed tag vocabulary the model classifies against
var Themes = []string{
	"performance",
	"reliability",
	"documentation",
	"pricing",
	"support",
	"feature-request",
	"bug",
	"security",
	"usability",
	"integration",
	"developer-experience",
	"onboarding",
}

// Uncategorized is returned when the theme answer cannot be parsed
const Uncategorized = "uncategorized"

// tierDefaults is the urgency used when the model cannot score it
var tierDefaults = map[types.Tier]int{
	types.TierEnterprise: 7,
	types.TierPro:        5,
	types.TierFree:       3,
	types.TierUnknown:    5,
}

// DefaultUrgency returns the fallback urgency for a tier
func DefaultUrgency(tier types.Tier) int {
	if u, ok := tierDefaults[tier]; ok {
		return u
	}
	return 5
}

// Gateway is the part of the Model Gateway the classifier needs
type Gateway interface {
	Generate(ctx context.Context, messages []llm.Message, maxTokens int) (string, error)
	ClassifySentiment(ctx context.Context, text string) ([]llm.SentimentScore, error)
}

// Result is the structured classification of one piece of feedback
type Result struct {
	Sentiment       float64              `json:"sentiment"`
	SentimentLabel  types.SentimentLabel `json:"sentiment_label"`
	Urgency         int                  `json:"urgency"`
	Themes          []string             `json:"themes"`
	Product         string               `json:"product,omitempty"`
	UrgencyFallback bool                 `json:"-"` // urgency came from the tier table or a hint
}

// Classifier runs the four independent classification calls concurrently.
// It never returns an error: every failed call degrades to its fallback.
type Classifier struct {
	gateway       Gateway
	log           *logrus.Entry
	themePrompt   string
	urgencyPrompt string
	productPrompt string
}

// New creates a classifier. Prompts can be overridden through
// THEME_PROMPT, URGENCY_PROMPT and PRODUCT_PROMPT.
func New(gateway Gateway, log *logrus.Logger) *Classifier {
	return &Classifier{
		gateway:       gateway,
		log:           log.WithField("component", "classifier"),
		themePrompt:   llm.TemplateFromEnv("THEME_PROMPT", defaultThemePrompt),
		urgencyPrompt: llm.TemplateFromEnv("URGENCY_PROMPT", defaultUrgencyPrompt),
		productPrompt: llm.TemplateFromEnv("PRODUCT_PROMPT", defaultProductPrompt),
	}
}

// Classify returns sentiment, urgency, themes and product for text
func (c *Classifier) Classify(ctx context.Context, text string, customer *types.CustomerContext) Result {
	cc := &types.CustomerContext{}
	if customer != nil {
		*cc = *customer
	}
	if cc.Tier == "" {
		cc.Tier = types.TierUnknown
	}

	var (
		res Result
		g   errgroup.Group
	)

	g.Go(func() error {
		res.Sentiment, res.SentimentLabel = c.sentiment(ctx, text)
		return nil
	})
	g.Go(func() error {
		res.Themes = c.themes(ctx, text)
		return nil
	})
	g.Go(func() error {
		res.Urgency, res.UrgencyFallback = c.urgency(ctx, text, cc)
		return nil
	})
	g.Go(func() error {
		res.Product = c.product(ctx, text, cc.Product)
		return nil
	})
	_ = g.Wait()

	return res
}

func (c *Classifier) sentiment(ctx context.Context, text string) (float64, types.SentimentLabel) {
	scores, err := c.gateway.ClassifySentiment(ctx, text)
	if err != nil {
		c.fallback("sentiment", err)
		return 0, types.SentimentNeutral
	}

	var pos, neg float64
	found := false
	for _, s := range scores {
		switch strings.ToUpper(s.Label) {
		case "POSITIVE":
			pos, found = s.Score, true
		case "NEGATIVE":
			neg, found = s.Score, true
		}
	}
	if !found {
		c.fallback("sentiment", fmt.Errorf("%w: no POSITIVE/NEGATIVE scores", types.ErrParseFailure))
		return 0, types.SentimentNeutral
	}

	score := clamp(pos-neg, -1, 1)
	return score, types.LabelForScore(score)
}

func (c *Classifier) themes(ctx context.Context, text string) []string {
	answer, err := c.gateway.Generate(ctx, []llm.Message{
		{Role: "system", Content: llm.RenderTemplate(c.themePrompt, map[string]string{"THEMES": strings.Join(Themes, ", ")})},
		{Role: "user", Content: "Classify: " + text},
	}, 100)
	if err != nil {
		c.fallback("themes", err)
		return []string{Uncategorized}
	}

	tags, err := ParseThemes(answer)
	if err != nil {
		c.fallback("themes", err)
		return []string{Uncategorized}
	}
	return tags
}

func (c *Classifier) urgency(ctx context.Context, text string, cc *types.CustomerContext) (int, bool) {
	fallback := DefaultUrgency(cc.Tier)
	if cc.UrgencyHint >= 1 && cc.UrgencyHint <= 10 {
		fallback = cc.UrgencyHint
	}

	answer, err := c.gateway.Generate(ctx, []llm.Message{
		{Role: "system", Content: c.urgencyPrompt},
		{Role: "user", Content: fmt.Sprintf("Content: %s\nTier: %s\nARR: $%d", text, cc.Tier, cc.ARR)},
	}, 10)
	if err != nil {
		c.fallback("urgency", err)
		return fallback, true
	}

	u, err := ParseUrgency(answer)
	if err != nil {
		c.fallback("urgency", err)
		return fallback, true
	}
	return u, false
}

func (c *Classifier) product(ctx context.Context, text, known string) string {
	if known != "" {
		return known
	}

	answer, err := c.gateway.Generate(ctx, []llm.Message{
		{Role: "system", Content: llm.RenderTemplate(c.productPrompt, map[string]string{"PRODUCTS": strings.Join(types.Products, ", ")})},
		{Role: "user", Content: text},
	}, 10)
	if err != nil {
		c.fallback("product", err)
		return ""
	}
	return ParseProduct(answer)
}

func (c *Classifier) fallback(reason string, err error) {
	metrics.Fallback("classifier", reason)
	c.log.WithError(err).WithField("call", reason).Warn("Classification call degraded to fallback")
}

// ParseThemes extracts a JSON array of tags from a model answer and keeps
// the normalized tags that belong to the vocabulary
func ParseThemes(answer string) ([]string, error) {
	start, end := strings.Index(answer, "["), strings.LastIndex(answer, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in %q", types.ErrParseFailure, truncate(answer, 80))
	}

	var raw []string
	if err := json.Unmarshal([]byte(answer[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParseFailure, err)
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if !isTheme(t) || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: no known themes in %q", types.ErrParseFailure, truncate(answer, 80))
	}
	return tags, nil
}

// ParseUrgency accepts a bare integer in [1,10]. Out-of-range answers are
// rejected, not clamped.
func ParseUrgency(answer string) (int, error) {
	s := strings.TrimRight(strings.TrimSpace(answer), ".")
	u, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: urgency %q", types.ErrParseFailure, truncate(answer, 20))
	}
	if u < 1 || u > 10 {
		return 0, fmt.Errorf("%w: urgency %d out of range", types.ErrParseFailure, u)
	}
	return u, nil
}

// ParseProduct maps a model answer to a known product; "unknown", "other"
// and anything off the list map to ""
func ParseProduct(answer string) string {
	return types.ParseProduct(strings.Trim(strings.TrimSpace(answer), `"'.`))
}

func isTheme(t string) bool {
	for _, v := range Themes {
		if v == t {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
