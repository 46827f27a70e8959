package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"parks-rag/internal/domain"
)

const generationTemperature = 0.0

// Citation points at a passage that was actually supplied to the generator.
// Citations are a direct projection of those passages, never parsed out of
// the generated text, so the system cannot fabricate one.
type Citation struct {
	ParkName string  `json:"park_name"`
	ParkCode string  `json:"park_code"`
	URL      string  `json:"url"`
	Score    float32 `json:"score"`
}

// AnswerGenerator invokes the LLM over a grounded prompt and produces the
// final answer with its citation list. The complete and streamed variants
// issue the same call; only the consumption mode differs.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, passages []domain.Passage, activePark string, history []domain.Turn) (string, []Citation, error)
	GenerateStream(ctx context.Context, question string, passages []domain.Passage, activePark string, history []domain.Turn) (<-chan domain.ChatStreamChunk, <-chan error, error)
	Citations(passages []domain.Passage) []Citation
}

type answerGenerator struct {
	llm       domain.ChatClient
	builder   AnswerPromptBuilder
	maxTokens int
	logger    *slog.Logger
}

// NewAnswerGenerator wires the generator to its chat client and prompt builder.
func NewAnswerGenerator(llm domain.ChatClient, builder AnswerPromptBuilder, maxTokens int, logger *slog.Logger) AnswerGenerator {
	return &answerGenerator{
		llm:       llm,
		builder:   builder,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (g *answerGenerator) Generate(ctx context.Context, question string, passages []domain.Passage, activePark string, history []domain.Turn) (string, []Citation, error) {
	messages := g.builder.Build(question, passages, activePark, history)

	resp, err := g.llm.Chat(ctx, messages, domain.ChatOptions{
		Temperature: generationTemperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", nil, domain.NewProviderError(domain.ProviderLLM, err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", nil, domain.NewProviderError(domain.ProviderLLM, fmt.Errorf("empty completion"))
	}

	g.logger.Info("answer_generated",
		slog.Int("passage_count", len(passages)),
		slog.String("park_code", activePark),
	)
	return strings.TrimSpace(resp.Text), g.Citations(passages), nil
}

func (g *answerGenerator) GenerateStream(ctx context.Context, question string, passages []domain.Passage, activePark string, history []domain.Turn) (<-chan domain.ChatStreamChunk, <-chan error, error) {
	messages := g.builder.Build(question, passages, activePark, history)

	chunkCh, errCh, err := g.llm.ChatStream(ctx, messages, domain.ChatOptions{
		Temperature: generationTemperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, nil, domain.NewProviderError(domain.ProviderLLM, err)
	}
	return chunkCh, errCh, nil
}

func (g *answerGenerator) Citations(passages []domain.Passage) []Citation {
	citations := make([]Citation, 0, len(passages))
	for _, p := range passages {
		citations = append(citations, Citation{
			ParkName: p.ParkName,
			ParkCode: p.ParkCode,
			URL:      p.SourceURL,
			Score:    p.Score,
		})
	}
	return citations
}
