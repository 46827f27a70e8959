package domain

import "context"

// Passage is a retrieved chunk of source text with its similarity score and
// provenance metadata. The pipeline holds a read-only copy per request.
type Passage struct {
	ChunkID   string
	ParkCode  string
	ParkName  string
	SourceURL string
	Content   string
	Score     float32 // cosine similarity in [0,1]
}

// StoredPassage pairs a passage with its embedding for ingestion.
type StoredPassage struct {
	Passage
	Embedding []float32
}

// PassageRepository is the persisted passage collection backing retrieval.
type PassageRepository interface {
	// Search returns the nearest passages ordered by descending similarity.
	// When parkCode is non-empty an equality filter is applied at query time;
	// if the index backing that filter is missing the error wraps
	// ErrFilteredIndexUnavailable so the caller can degrade to an unfiltered
	// query.
	Search(ctx context.Context, queryVector []float32, parkCode string, limit int) ([]Passage, error)

	// BulkInsert stores embedded passages. Used by offline ingestion only.
	BulkInsert(ctx context.Context, passages []StoredPassage) error

	// EnsureSchema creates the passages table and vector extension.
	EnsureSchema(ctx context.Context) error

	// EnsureIndexes creates the park_code and vector indexes whose absence
	// degrades filtered search.
	EnsureIndexes(ctx context.Context) error
}
