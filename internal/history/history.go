// Package history defines the storage contract for finished assessments.
// Persistence is optional: a deployment without a database simply runs
// without history, and the server degrades its endpoints accordingly.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/oratio/internal/assess"
)

// ErrNotFound is returned by lookups that matched nothing.
var ErrNotFound = errors.New("history: not found")

// Assessment is one persisted assessment run.
type Assessment struct {
	// ID is assigned by the store on save.
	ID int64

	CreatedAt time.Time

	// TextKey identifies the target text independent of punctuation and
	// case, the same key the reference cache uses.
	TextKey string

	TargetText string
	Language   string

	OverallScore float64

	// Report is the full assessment report as delivered to the client.
	Report *assess.Report

	// Embedding is the acoustic embedding of the reading, when the
	// deployment runs an embedding provider. Enables closest-attempt
	// lookups.
	Embedding []float32
}

// Store persists assessments and answers recency queries.
type Store interface {
	// SaveAssessment stores a and returns its assigned ID.
	SaveAssessment(ctx context.Context, a Assessment) (int64, error)

	// RecentByText returns up to limit assessments of the text identified
	// by textKey, newest first.
	RecentByText(ctx context.Context, textKey string, limit int) ([]Assessment, error)

	// ClosestAttempt returns the stored assessment of the same text whose
	// embedding lies nearest to embedding by cosine distance, together with
	// the cosine similarity in [-1, 1]. Returns [ErrNotFound] when no
	// stored attempt of the text carries an embedding.
	ClosestAttempt(ctx context.Context, textKey string, embedding []float32) (Assessment, float64, error)
}
