package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"parks-rag/internal/domain"
)

// overFetchMultiplier sizes the unfiltered candidate set when the store's
// native filtering path is degraded. Trades bandwidth for availability.
const overFetchMultiplier = 3

// Retriever embeds the search query and fetches the nearest passages from the
// store, applying park filtering with a fallback when the filtered index is
// unavailable. It performs no retry of its own; both provider failures
// surface as distinct retryable ProviderError kinds.
type Retriever interface {
	Retrieve(ctx context.Context, query string, activePark string, topK int) ([]domain.Passage, error)
}

type retriever struct {
	encoder domain.VectorEncoder
	store   domain.PassageRepository
	logger  *slog.Logger
}

// NewRetriever creates a retriever over the given encoder and passage store.
func NewRetriever(encoder domain.VectorEncoder, store domain.PassageRepository, logger *slog.Logger) Retriever {
	return &retriever{
		encoder: encoder,
		store:   store,
		logger:  logger,
	}
}

func (r *retriever) Retrieve(ctx context.Context, query string, activePark string, topK int) ([]domain.Passage, error) {
	vectors, err := r.encoder.EncodeQueries(ctx, []string{query})
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewProviderError(domain.ProviderEmbedding,
			fmt.Errorf("expected 1 embedding, got %d", len(vectors)))
	}
	vector := vectors[0]

	passages, err := r.store.Search(ctx, vector, activePark, topK)
	switch {
	case err == nil:
	case activePark != "" && errors.Is(err, domain.ErrFilteredIndexUnavailable):
		passages, err = r.retrieveDegraded(ctx, vector, activePark, topK)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewProviderError(domain.ProviderVectorStore, err)
	}

	r.logger.Info("passages_retrieved",
		slog.Int("count", len(passages)),
		slog.String("park_code", activePark),
	)
	r.checkParkConsistency(passages, activePark)
	return passages, nil
}

// retrieveDegraded re-queries unfiltered with an enlarged candidate set and
// filters in-process, preserving the store's descending-similarity order.
func (r *retriever) retrieveDegraded(ctx context.Context, vector []float32, activePark string, topK int) ([]domain.Passage, error) {
	r.logger.Warn("filtered_search_degraded",
		slog.String("park_code", activePark),
		slog.Int("overfetch", topK*overFetchMultiplier),
	)

	candidates, err := r.store.Search(ctx, vector, "", topK*overFetchMultiplier)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderVectorStore, err)
	}

	passages := make([]domain.Passage, 0, topK)
	for _, p := range candidates {
		if p.ParkCode != activePark {
			continue
		}
		passages = append(passages, p)
		if len(passages) == topK {
			break
		}
	}
	return passages, nil
}

func (r *retriever) checkParkConsistency(passages []domain.Passage, activePark string) {
	if activePark == "" || len(passages) == 0 {
		return
	}
	parks := make(map[string]bool)
	for _, p := range passages {
		parks[p.ParkCode] = true
	}
	if !parks[activePark] || len(parks) > 1 {
		r.logger.Warn("park_filter_mismatch",
			slog.String("expected", activePark),
			slog.Int("distinct_parks", len(parks)),
		)
	}
}
