// Package postgres provides the PostgreSQL-backed history store. Assessment
// reports are stored as JSONB; reading and reference embeddings live in
// pgvector columns so past attempts can be compared by cosine distance.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlReferenceEmbeddings = `
CREATE TABLE IF NOT EXISTS reference_embeddings (
    text_key    TEXT         NOT NULL,
    model       TEXT         NOT NULL,
    embedding   vector       NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (text_key, model)
);
`

// ddlAssessments returns the assessments DDL with the embedding dimension
// substituted. The dimension is baked into the column type at schema
// creation time.
func ddlAssessments(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS assessments (
    id             BIGSERIAL    PRIMARY KEY,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    text_key       TEXT         NOT NULL,
    target_text    TEXT         NOT NULL,
    language       TEXT         NOT NULL DEFAULT '',
    overall_score  DOUBLE PRECISION NOT NULL,
    report         JSONB        NOT NULL,
    embedding      vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_assessments_text_key
    ON assessments (text_key, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_assessments_embedding
    ON assessments USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every application start.
//
// embeddingDimensions must match the configured embedding model. Changing it
// after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlAssessments(embeddingDimensions),
		ddlReferenceEmbeddings,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
