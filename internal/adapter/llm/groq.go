package llm

import (
	"bufio"
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

// GroqClient sends chat completions to Groq's OpenAI-compatible endpoint.
type GroqClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewGroqClient constructs a client using the provided endpoint, model and
// shared HTTP client.
func NewGroqClient(baseURL, model, apiKey string, client *http.Client) *GroqClient {
	return &GroqClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  strings.TrimSpace(apiKey),
		Client:  client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (g *GroqClient) newRequest(ctx context.Context, messages []domain.Message, opts domain.ChatOptions, stream bool) (*http.Request, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	reqBody := chatRequest{
		Model:       g.Model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/v1/chat/completions", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	return req, nil
}

// Chat sends the message sequence and returns the complete assistant reply.
func (g *GroqClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	start := time.Now()

	req, err := g.newRequest(ctx, messages, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		slog.Error("groq_chat_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to call groq: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("groq returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("groq returned no choices")
	}

	choice := chatResp.Choices[0]
	slog.Info("groq_chat_completed",
		slog.String("finish_reason", choice.FinishReason),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &domain.ChatResponse{
		Text: choice.Message.Content,
		Done: choice.FinishReason != "",
	}, nil
}

// ChatStream sends the message sequence with streaming enabled and relays
// server-sent deltas until the [DONE] trailer. Cancelling ctx aborts the
// request and closes the underlying connection.
func (g *GroqClient) ChatStream(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (<-chan domain.ChatStreamChunk, <-chan error, error) {
	req, err := g.newRequest(ctx, messages, opts, true)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call groq: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("groq returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan domain.ChatStreamChunk, 8)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				g.send(ctx, chunks, domain.ChatStreamChunk{Done: true})
				return
			}

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				g.sendErr(ctx, errs, fmt.Errorf("failed to decode stream chunk: %w", err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				if !g.send(ctx, chunks, domain.ChatStreamChunk{Delta: choice.Delta.Content}) {
					return
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				g.send(ctx, chunks, domain.ChatStreamChunk{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			g.sendErr(ctx, errs, fmt.Errorf("stream read failed: %w", err))
		}
	}()

	return chunks, errs, nil
}

func (g *GroqClient) send(ctx context.Context, chunks chan<- domain.ChatStreamChunk, chunk domain.ChatStreamChunk) bool {
	select {
	case <-ctx.Done():
		return false
	case chunks <- chunk:
		return true
	}
}

func (g *GroqClient) sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case <-ctx.Done():
	case errs <- err:
	}
}

// Version returns the wrapped model name.
func (g *GroqClient) Version() string {
	return g.Model
}

var _ domain.ChatClient = (*GroqClient)(nil)
