package vector

import (
	"context"
	"errors"

	"docent/llm"
)

// ErrDimensionMismatch is returned when a vector's dimensionality does not
// match the store's, or when the persisted collection was built with a
// different embedding model than the one configured now.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store is the vector storage interface. Documents passed to Add already
// carry their vectors; Query takes a raw query vector. Keeping embedding out
// of the store leaves one place, the ingest pipeline and the answerer, in
// charge of talking to the embedding service.
type Store interface {
	// Reset deletes the persisted collection so an ingestion run starts
	// from a clean slate. Resetting a missing collection is not an error.
	Reset(ctx context.Context) error

	// Add inserts embedded documents, assigning a stable ID to any document
	// without one. Every vector must match the store dimension.
	Add(ctx context.Context, docs []llm.Document) error

	// Query returns the min(k, Count) stored documents nearest to vec,
	// ordered nearest-first.
	Query(ctx context.Context, vec []float32, k int) ([]llm.SearchResult, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int64, error)

	// Close releases any connections or resources.
	Close() error
}

// StoreConfig holds configuration shared by store implementations.
type StoreConfig struct {
	// Name is the collection name.
	Name string
	// EmbeddingModel is the stable identifier of the model that produced
	// the stored vectors. Checked at open time so a model swap between
	// ingestion and query fails fast instead of degrading similarity.
	EmbeddingModel string
	// Dim is the vector dimensionality. Zero means adopt the dimension of
	// the first inserted vector.
	Dim int
}
