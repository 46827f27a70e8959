package domain

import "context"

// VectorEncoder defines the interface for generating embeddings.
type VectorEncoder interface {
	// EncodeQueries embeds texts for similarity search against the store.
	EncodeQueries(ctx context.Context, texts []string) ([][]float32, error)
	// EncodeDocuments embeds texts for storage.
	EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// ChatOptions tune a single LLM call.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// ChatResponse carries the LLM output and whether the generation finished.
type ChatResponse struct {
	Text string
	Done bool
}

// ChatStreamChunk is one incremental piece of a streamed completion.
type ChatStreamChunk struct {
	Delta string
	Done  bool
}

// ChatClient defines the capability to send an ordered message sequence to an
// LLM and receive a textual response, complete or token-streamed.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (<-chan ChatStreamChunk, <-chan error, error)
	Version() string
}
