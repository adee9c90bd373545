package followup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const lastAnswer = `The most urgent reports come from **Acme Corp** (enterprise, $250k ARR) and Globex (pro).
Both relate to R2 upload **timeouts**, and one mentions **Enterprise** support and **billing errors**, plus **dashboard lag**.`

func history() []types.Turn {
	return []types.Turn{
		{Role: types.RoleUser, Content: "What are the top issues?"},
		{Role: types.RoleAssistant, Content: lastAnswer},
	}
}

func TestEnhancer_NoHistoryIsNoop(t *testing.T) {
	e := New(nil)
	for _, msg := range []string{"", "tell me more about them", "and why?", "What is R2?"} {
		assert.Equal(t, msg, e.Enhance(msg, nil))
		assert.Equal(t, msg, e.Enhance(msg, []types.Turn{}))
	}
}

func TestEnhancer_FollowUpGetsContext(t *testing.T) {
	got := New(nil).Enhance("Tell me more about their problems", history())

	assert.Equal(t, "Tell me more about their problems (context: Acme Corp, Globex, r2, timeouts)", got)
}

func TestEnhancer_NotAFollowUp(t *testing.T) {
	msg := "Summarize pricing feedback for Pages"
	assert.Equal(t, msg, New(nil).Enhance(msg, history()))
}

func TestEnhancer_NoAssistantTurn(t *testing.T) {
	msg := "why is that?"
	assert.Equal(t, msg, New(nil).Enhance(msg, []types.Turn{{Role: types.RoleUser, Content: "**Acme Corp** (enterprise)"}}))
}

func TestEnhancer_NoEntities(t *testing.T) {
	msg := "can you explain?"
	h := []types.Turn{{Role: types.RoleAssistant, Content: "nothing notable happened this week."}}
	assert.Equal(t, msg, New(nil).Enhance(msg, h))
}

type staticExtractor []string

func (s staticExtractor) Extract(string) []string { return s }

func TestEnhancer_PluggableExtractorAndCap(t *testing.T) {
	e := New(staticExtractor{"a", "b", "c", "d", "e", "f"})
	assert.Equal(t, "and those? (context: a, b, c, d)", e.Enhance("and those?", history()))
}

func TestIsFollowUp(t *testing.T) {
	yes := []string{
		"What did they say?",
		"as mentioned above",
		"Can you elaborate",
		"tell me more",
		"But what about Workers?",
		"Also the pricing one",
		"which are critical",
	}
	for _, m := range yes {
		assert.True(t, IsFollowUp(m), m)
	}

	no := []string{"What are the top issues of the week?", "Show R2 feedback", "itemize pricing"}
	for _, m := range no {
		assert.False(t, IsFollowUp(m), m)
	}
}

func TestRegexExtractor_AdversarialInput(t *testing.T) {
	x := NewRegexExtractor(types.Products)
	huge := strings.Repeat("**(", 10000) + strings.Repeat("A (", 5000)
	assert.NotPanics(t, func() { x.Extract(huge) })
	assert.Empty(t, x.Extract(""))
}
