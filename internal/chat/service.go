package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/internal/followup"
	"github.com/Shubhamjha-sj/signal/internal/rag"
	"github.com/Shubhamjha-sj/signal/pkg/conversation"
	"github.com/Shubhamjha-sj/signal/pkg/llm"
	"github.com/Shubhamjha-sj/signal/pkg/metrics"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

const (
	// HistoryTurns is how many prior turns are sent to the model
	HistoryTurns   = 10
	replyMaxTokens = 1000
	summaryTokens  = 500
)

var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrNoFeedbackIDs = errors.New("no feedback ids provided")
)

type Generator interface {
	Generate(ctx context.Context, messages []llm.Message, maxTokens int) (string, error)
}

type ContextBuilder interface {
	Build(ctx context.Context, query string, topK int) rag.Context
}

type FeedbackLoader interface {
	GetFeedbackByIDs(ctx context.Context, ids []string) ([]types.FeedbackItem, error)
}

// Reply is one answered chat turn
type Reply struct {
	Message        string             `json:"message"`
	Sources        []types.ChatSource `json:"sources"`
	ConversationID string             `json:"conversation_id"`
}

// Summary is the result of summarizing a set of feedback items
type Summary struct {
	Summary       string   `json:"summary"`
	FeedbackCount int      `json:"feedback_count"`
	FeedbackIDs   []string `json:"feedback_ids"`
}

// Service answers questions about feedback with retrieved evidence
type Service struct {
	generator     Generator
	conversations conversation.Store
	enhancer      *followup.Enhancer
	assembler     ContextBuilder
	feedback      FeedbackLoader
	topK          int
	systemPrompt  string
	log           *logrus.Entry
}

// NewService creates the chat service. The system prompt can be overridden
// through CHAT_SYSTEM_PROMPT; it must contain {CONTEXT}.
func NewService(generator Generator, conversations conversation.Store, enhancer *followup.Enhancer, assembler ContextBuilder, feedback FeedbackLoader, topK int, log *logrus.Logger) *Service {
	if enhancer == nil {
		enhancer = followup.New(nil)
	}
	return &Service{
		generator:     generator,
		conversations: conversations,
		enhancer:      enhancer,
		assembler:     assembler,
		feedback:      feedback,
		topK:          topK,
		systemPrompt:  llm.TemplateFromEnv("CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
		log:           log.WithField("component", "chat"),
	}
}

// Send answers message within the conversation, starting a new one when
// conversationID is empty. An answer is always produced; only an empty
// message is an error.
func (s *Service) Send(ctx context.Context, conversationID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	log := s.log.WithField("conversation_id", conversationID)

	history, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		metrics.Fallback("chat", "history")
		log.WithError(err).Warn("Failed to load conversation history, continuing without it")
		history = nil
	}

	query := s.enhancer.Enhance(message, history)
	if query != message {
		log.WithField("query", query).Debug("Enhanced follow-up query")
	}

	evidence := s.assembler.Build(ctx, query, s.topK)
	contextText := evidence.Text
	if contextText == "" {
		contextText = noContext
	}

	messages := make([]llm.Message, 0, HistoryTurns+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: llm.RenderTemplate(s.systemPrompt, map[string]string{"CONTEXT": contextText}),
	})
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})

	answer, err := s.generator.Generate(ctx, messages, replyMaxTokens)
	if err != nil || strings.TrimSpace(answer) == "" {
		metrics.Fallback("chat", "generate")
		log.WithError(err).Warn("Generation failed, answering with apology")
		answer = apology
	}

	now := time.Now().UTC()
	if err := s.conversations.Append(ctx, conversationID,
		types.Turn{Role: types.RoleUser, Content: message, CreatedAt: now},
		types.Turn{Role: types.RoleAssistant, Content: answer, CreatedAt: now},
	); err != nil {
		log.WithError(err).Warn("Failed to store conversation turn")
	}

	sources := evidence.Sources
	if sources == nil {
		sources = []types.ChatSource{}
	}
	return &Reply{Message: answer, Sources: sources, ConversationID: conversationID}, nil
}

// History returns a conversation's turns, or types.ErrNotFound when it has none
func (s *Service) History(ctx context.Context, conversationID string) ([]types.Turn, error) {
	turns, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, types.ErrNotFound)
	}
	return turns, nil
}

// Clear forgets a conversation
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	return s.conversations.Clear(ctx, conversationID)
}

// Summarize asks the model for a digest of the given items
func (s *Service) Summarize(ctx context.Context, ids []string) (*Summary, error) {
	if len(ids) == 0 {
		return nil, ErrNoFeedbackIDs
	}

	items, err := s.feedback.GetFeedbackByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("feedback: %w", types.ErrNotFound)
	}

	var b strings.Builder
	b.WriteString("Summarize:\n")
	found := make([]string, 0, len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "\n- [%s] %s", it.Source, it.Content)
		found = append(found, it.ID)
	}

	summary, err := s.generator.Generate(ctx, []llm.Message{
		{Role: "system", Content: summarizePrompt},
		{Role: "user", Content: b.String()},
	}, summaryTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}

	return &Summary{Summary: summary, FeedbackCount: len(items), FeedbackIDs: found}, nil
}
