package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"parks-rag/internal/domain"
)

const (
	inputTypeQuery    = "search_query"
	inputTypeDocument = "search_document"
)

// CohereEmbedder calls Cohere's v2 embed endpoint and returns float vectors.
type CohereEmbedder struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewCohereEmbedder constructs an embedder using the provided endpoint, model
// and shared HTTP client.
func NewCohereEmbedder(baseURL, model, apiKey string, client *http.Client) *CohereEmbedder {
	return &CohereEmbedder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  strings.TrimSpace(apiKey),
		Client:  client,
	}
}

type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

func (e *CohereEmbedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts, inputTypeQuery)
}

func (e *CohereEmbedder) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.encode(ctx, texts, inputTypeDocument)
}

func (e *CohereEmbedder) encode(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	slog.Info("cohere_embed_started",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.Model),
		slog.String("input_type", inputType),
	)
	start := time.Now()

	reqBody := embedRequest{
		Model:          e.Model,
		Texts:          texts,
		InputType:      inputType,
		EmbeddingTypes: []string{"float"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/embed", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		slog.Error("cohere_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to call cohere: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("cohere_embed_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, string(body))
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(respBody.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respBody.Embeddings.Float))
	}

	slog.Info("cohere_embed_completed",
		slog.Int("embedding_count", len(respBody.Embeddings.Float)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return respBody.Embeddings.Float, nil
}

func (e *CohereEmbedder) Version() string {
	return e.Model
}

var _ domain.VectorEncoder = (*CohereEmbedder)(nil)
