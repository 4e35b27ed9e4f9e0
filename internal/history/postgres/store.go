package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/oratio/internal/acoustic"
	"github.com/MrWong99/oratio/internal/history"
)

var (
	_ history.Store           = (*Store)(nil)
	_ acoustic.EmbeddingStore = (*Store)(nil)
)

// Store is the PostgreSQL-backed history store. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate].
//
// embeddingDimensions must match the output dimension of the configured
// embedding model.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveAssessment implements [history.Store].
func (s *Store) SaveAssessment(ctx context.Context, a history.Assessment) (int64, error) {
	report, err := json.Marshal(a.Report)
	if err != nil {
		return 0, fmt.Errorf("history store: marshal report: %w", err)
	}

	var embedding any
	if len(a.Embedding) > 0 {
		embedding = pgvector.NewVector(a.Embedding)
	}

	const q = `
		INSERT INTO assessments (text_key, target_text, language, overall_score, report, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, q,
		a.TextKey, a.TargetText, a.Language, a.OverallScore, report, embedding,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("history store: save assessment: %w", err)
	}
	return id, nil
}

// RecentByText implements [history.Store]. Embeddings are not hydrated; use
// [Store.ClosestAttempt] for similarity lookups.
func (s *Store) RecentByText(ctx context.Context, textKey string, limit int) ([]history.Assessment, error) {
	const q = `
		SELECT id, created_at, text_key, target_text, language, overall_score, report
		FROM assessments
		WHERE text_key = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, textKey, limit)
	if err != nil {
		return nil, fmt.Errorf("history store: recent by text: %w", err)
	}
	defer rows.Close()

	var out []history.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history store: recent by text: %w", err)
	}
	return out, nil
}

// ClosestAttempt returns the past assessment of the same text whose reading
// embedding is nearest (cosine distance) to embedding, together with the
// cosine similarity in [-1, 1]. Returns [history.ErrNotFound] when no past
// attempt carries an embedding.
func (s *Store) ClosestAttempt(ctx context.Context, textKey string, embedding []float32) (history.Assessment, float64, error) {
	const q = `
		SELECT id, created_at, text_key, target_text, language, overall_score, report,
		       1 - (embedding <=> $2) AS similarity
		FROM assessments
		WHERE text_key = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT 1`

	row := s.pool.QueryRow(ctx, q, textKey, pgvector.NewVector(embedding))

	var (
		a          history.Assessment
		report     []byte
		similarity float64
	)
	err := row.Scan(&a.ID, &a.CreatedAt, &a.TextKey, &a.TargetText, &a.Language,
		&a.OverallScore, &report, &similarity)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Assessment{}, 0, history.ErrNotFound
	}
	if err != nil {
		return history.Assessment{}, 0, fmt.Errorf("history store: closest attempt: %w", err)
	}
	if err := json.Unmarshal(report, &a.Report); err != nil {
		return history.Assessment{}, 0, fmt.Errorf("history store: unmarshal report: %w", err)
	}
	return a, similarity, nil
}

// ReferenceEmbedding implements [acoustic.EmbeddingStore].
func (s *Store) ReferenceEmbedding(ctx context.Context, key, model string) ([]float32, bool, error) {
	const q = `SELECT embedding FROM reference_embeddings WHERE text_key = $1 AND model = $2`

	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, q, key, model).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("history store: reference embedding: %w", err)
	}
	return vec.Slice(), true, nil
}

// UpsertReferenceEmbedding implements [acoustic.EmbeddingStore].
func (s *Store) UpsertReferenceEmbedding(ctx context.Context, key, model string, vec []float32) error {
	const q = `
		INSERT INTO reference_embeddings (text_key, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (text_key, model) DO UPDATE SET
		    embedding  = EXCLUDED.embedding,
		    created_at = now()`

	if _, err := s.pool.Exec(ctx, q, key, model, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("history store: upsert reference embedding: %w", err)
	}
	return nil
}

// scanAssessment hydrates one assessments row, unmarshalling the JSONB
// report.
func scanAssessment(row pgx.Row) (history.Assessment, error) {
	var (
		a      history.Assessment
		report []byte
	)
	err := row.Scan(&a.ID, &a.CreatedAt, &a.TextKey, &a.TargetText, &a.Language,
		&a.OverallScore, &report)
	if err != nil {
		return history.Assessment{}, fmt.Errorf("history store: scan assessment: %w", err)
	}
	if err := json.Unmarshal(report, &a.Report); err != nil {
		return history.Assessment{}, fmt.Errorf("history store: unmarshal report: %w", err)
	}
	return a, nil
}
