package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parks-rag/internal/adapter/embedding"
	"parks-rag/internal/adapter/llm"
	"parks-rag/internal/adapter/repository"
	"parks-rag/internal/domain"
	"parks-rag/internal/infra/config"
	"parks-rag/internal/infra/httpclient"
	"parks-rag/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Registry    *domain.ParkRegistry
	PassageRepo domain.PassageRepository
	Encoder     domain.VectorEncoder
	ChatClient  domain.ChatClient
	Retriever   usecase.Retriever
	Pipeline    usecase.AnswerPipeline
}

// NewApplicationComponents wires all dependencies from config and database
// pool. Provider clients are created once here and reused across requests.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	registry := domain.NewParkRegistry()
	passageRepo := repository.NewPassageRepository(pool)

	// Shared HTTP clients with connection pooling
	embedHTTP := httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeout) * time.Second)
	llmHTTP := httpclient.NewPooledClient(time.Duration(cfg.LLMTimeout) * time.Second)

	encoder := embedding.NewCohereEmbedder(cfg.CohereURL, cfg.EmbeddingModel, cfg.CohereAPIKey, embedHTTP)
	chatClient := llm.NewGroqClient(cfg.GroqURL, cfg.GroqModel, cfg.GroqAPIKey, llmHTTP)

	resolver := usecase.NewParkContextResolver(registry)
	rewriter := usecase.NewQueryRewriter(chatClient, registry, cfg.RewriteCacheSize, log)
	retriever := usecase.NewRetriever(encoder, passageRepo, log)
	generator := usecase.NewAnswerGenerator(chatClient, usecase.NewAnswerPromptBuilder(), cfg.AnswerMaxTokens, log)
	pipeline := usecase.NewAnswerPipeline(resolver, rewriter, retriever, generator, cfg.DefaultTopK, log)

	return &ApplicationComponents{
		Registry:    registry,
		PassageRepo: passageRepo,
		Encoder:     encoder,
		ChatClient:  chatClient,
		Retriever:   retriever,
		Pipeline:    pipeline,
	}
}
