package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"parks-rag/internal/domain"
)

type passageRepository struct {
	pool *pgxpool.Pool
}

// NewPassageRepository creates a pgvector-backed PassageRepository.
func NewPassageRepository(pool *pgxpool.Pool) domain.PassageRepository {
	return &passageRepository{pool: pool}
}

const searchColumns = `chunk_id, park_code, park_name, source_url, content,
	       1 - (embedding <=> $1) AS score`

func (r *passageRepository) Search(ctx context.Context, queryVector []float32, parkCode string, limit int) ([]domain.Passage, error) {
	vec := pgvector.NewVector(queryVector)

	var rows pgx.Rows
	var err error
	if parkCode != "" {
		query := fmt.Sprintf(`
		SELECT %s
		FROM passages
		WHERE park_code = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, searchColumns)
		rows, err = r.pool.Query(ctx, query, vec, parkCode, limit)
	} else {
		query := fmt.Sprintf(`
		SELECT %s
		FROM passages
		ORDER BY embedding <=> $1
		LIMIT $2`, searchColumns)
		rows, err = r.pool.Query(ctx, query, vec, limit)
	}
	if err != nil {
		return nil, r.mapSearchError(err, parkCode)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ChunkID, &p.ParkCode, &p.ParkName, &p.SourceURL, &p.Content, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		p.Score = clampScore(p.Score)
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapSearchError(err, parkCode)
	}
	return passages, nil
}

// mapSearchError translates missing-index conditions on the filtered path into
// the distinct degraded-filter signal; everything else is a hard store error.
func (r *passageRepository) mapSearchError(err error, parkCode string) error {
	if parkCode != "" {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// undefined_object / undefined_table: the structure backing the
			// park_code filter is gone or was never created.
			if pgErr.Code == "42704" || pgErr.Code == "42P01" {
				return fmt.Errorf("%w: %s", domain.ErrFilteredIndexUnavailable, pgErr.Message)
			}
		}
		return fmt.Errorf("failed to search filtered passages: %w", err)
	}
	return fmt.Errorf("failed to search passages: %w", err)
}

func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (r *passageRepository) BulkInsert(ctx context.Context, passages []domain.StoredPassage) error {
	if len(passages) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]interface{}, len(passages))
	for i, p := range passages {
		rows[i] = []interface{}{
			uuid.New(),
			p.ChunkID,
			p.ParkCode,
			p.ParkName,
			p.SourceURL,
			p.Content,
			pgvector.NewVector(p.Embedding),
			now,
		}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"passages"},
		[]string{"id", "chunk_id", "park_code", "park_name", "source_url", "content", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert passages: %w", err)
	}
	return nil
}

func (r *passageRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS passages (
			id UUID PRIMARY KEY,
			chunk_id TEXT NOT NULL,
			park_code TEXT NOT NULL,
			park_name TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector(1024) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (r *passageRepository) EnsureIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS passages_park_code_idx ON passages (park_code)`,
		`CREATE INDEX IF NOT EXISTS passages_embedding_idx ON passages USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}
	return nil
}

var _ domain.PassageRepository = (*passageRepository)(nil)
