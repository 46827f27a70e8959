package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"parks-rag/internal/domain"
)

const (
	// rewriteHistoryWindow bounds how many turns the rewrite prompt replays.
	rewriteHistoryWindow = 4
	rewriteTemperature   = 0.3
	rewriteMaxTokens     = 100
)

const rewriteSystemPrompt = "You are a helpful assistant that rewrites questions to be clear and " +
	"specific for database search. Output only the rewritten question, nothing else."

// QueryRewriter produces a context-independent search query by resolving
// pronouns and ellipsis against the conversation. Rewriting is a quality
// enhancement, never a hard dependency: any failure degrades to the original
// question and the request still completes.
type QueryRewriter interface {
	Rewrite(ctx context.Context, question string, history []domain.Turn, activePark string) string
}

type queryRewriter struct {
	llm      domain.ChatClient
	registry *domain.ParkRegistry
	cache    *lru.Cache[string, string]
	logger   *slog.Logger
}

// NewQueryRewriter creates a rewriter backed by the given chat client.
// cacheSize > 0 enables LRU memoization; the rewrite is a pure function of
// question, history tail and active park, so cached entries never go stale.
func NewQueryRewriter(llm domain.ChatClient, registry *domain.ParkRegistry, cacheSize int, logger *slog.Logger) QueryRewriter {
	var cache *lru.Cache[string, string]
	if cacheSize > 0 {
		cache, _ = lru.New[string, string](cacheSize)
	}
	return &queryRewriter{
		llm:      llm,
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

func (r *queryRewriter) Rewrite(ctx context.Context, question string, history []domain.Turn, activePark string) string {
	recent := history
	if len(recent) > rewriteHistoryWindow {
		recent = recent[len(recent)-rewriteHistoryWindow:]
	}

	key := cacheKey(question, recent, activePark)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached
		}
	}

	messages := r.buildMessages(question, recent, activePark)
	resp, err := r.llm.Chat(ctx, messages, domain.ChatOptions{
		Temperature: rewriteTemperature,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		r.logger.Warn("query_rewrite_failed",
			slog.String("error", err.Error()),
		)
		return question
	}

	rewritten := strings.TrimSpace(resp.Text)
	rewritten = strings.Trim(rewritten, `"'`)
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		r.logger.Warn("query_rewrite_empty")
		return question
	}

	r.logger.Info("query_rewritten",
		slog.String("from", question),
		slog.String("to", rewritten),
	)
	if r.cache != nil {
		r.cache.Add(key, rewritten)
	}
	return rewritten
}

func (r *queryRewriter) buildMessages(question string, recent []domain.Turn, activePark string) []domain.Message {
	var conversation strings.Builder
	for i, turn := range recent {
		if i > 0 {
			conversation.WriteString("\n")
		}
		label := "User"
		if turn.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		conversation.WriteString(label)
		conversation.WriteString(": ")
		conversation.WriteString(turn.Content)
	}

	parkContext := ""
	if activePark != "" {
		parkContext = fmt.Sprintf(
			"\n\nIMPORTANT: The conversation is about %s. "+
				"Ensure the rewritten question includes this park name if relevant.",
			r.registry.DisplayName(activePark),
		)
	}

	user := fmt.Sprintf(
		"Given the conversation history below, rewrite the user's latest question "+
			"to be self-contained and specific. Replace pronouns and references (like "+
			"'it', 'there', 'that', 'them') with the actual entities they refer to.\n\n"+
			"Conversation history:\n%s\n\n"+
			"Latest question: %s%s\n\n"+
			"Rewrite this question to be clear and specific, suitable for searching a "+
			"database. Include the park name or specific topic being discussed. Keep it "+
			"concise (under 20 words).\n\nRewritten question:",
		conversation.String(), question, parkContext,
	)

	return []domain.Message{
		{Role: domain.RoleSystem, Content: rewriteSystemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}

func cacheKey(question string, recent []domain.Turn, activePark string) string {
	h := sha256.New()
	h.Write([]byte(question))
	h.Write([]byte{0x1f})
	h.Write([]byte(activePark))
	for _, turn := range recent {
		h.Write([]byte{0x1f})
		h.Write([]byte(turn.Role))
		h.Write([]byte{0x1e})
		h.Write([]byte(turn.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
