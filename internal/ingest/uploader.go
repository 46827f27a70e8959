package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"parks-rag/internal/domain"
)

// Chunk mirrors one entry of the chunked-document JSON produced by the
// offline scraping and chunking jobs.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	ParkCode  string `json:"park_code"`
	ParkName  string `json:"park_name"`
	SourceURL string `json:"source_url"`
	Text      string `json:"text"`
}

// LoadChunks reads a JSON array of chunks from path.
func LoadChunks(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks file: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse chunks file: %w", err)
	}
	return chunks, nil
}

// Uploader embeds chunks in batches and bulk-inserts them into the passage
// store. Embedding calls are paced by a rate limiter sized to the provider's
// per-minute call budget.
type Uploader struct {
	encoder   domain.VectorEncoder
	repo      domain.PassageRepository
	limiter   *rate.Limiter
	batchSize int
	workers   int
	logger    *slog.Logger
}

// NewUploader creates an uploader. callsPerMinute bounds embedding API calls;
// batchSize is capped by the provider's per-call text limit.
func NewUploader(encoder domain.VectorEncoder, repo domain.PassageRepository, callsPerMinute, batchSize, workers int, logger *slog.Logger) *Uploader {
	if batchSize <= 0 {
		batchSize = 96
	}
	if workers <= 0 {
		workers = 2
	}
	return &Uploader{
		encoder:   encoder,
		repo:      repo,
		limiter:   rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1),
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Run uploads all chunks and returns how many were stored.
func (u *Uploader) Run(ctx context.Context, chunks []Chunk) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	var uploaded atomic.Int64
	for start := 0; start < len(chunks); start += u.batchSize {
		end := min(start+u.batchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			if err := u.limiter.Wait(ctx); err != nil {
				return err
			}

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := u.encoder.EncodeDocuments(ctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors))
			}

			stored := make([]domain.StoredPassage, len(batch))
			for i, c := range batch {
				stored[i] = domain.StoredPassage{
					Passage: domain.Passage{
						ChunkID:   c.ChunkID,
						ParkCode:  c.ParkCode,
						ParkName:  c.ParkName,
						SourceURL: c.SourceURL,
						Content:   c.Text,
					},
					Embedding: vectors[i],
				}
			}
			if err := u.repo.BulkInsert(ctx, stored); err != nil {
				return err
			}

			uploaded.Add(int64(len(batch)))
			u.logger.Info("chunk_batch_uploaded", slog.Int("count", len(batch)))
			return nil
		})
	}

	err := g.Wait()
	return int(uploaded.Load()), err
}
