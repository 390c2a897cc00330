package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

const (
	embedMaxAttempts = 3
	embedRetryDelay  = 500 * time.Millisecond
)

// EmbeddingService wraps an embedding model for vector generation. The
// vector dimensionality is learned from the first successful call and every
// later result must match it; a drifting dimension means the remote model
// changed under us and the store would silently degrade.
type EmbeddingService struct {
	embedder embedding.Embedder
	model    string
	mu       sync.Mutex
	dim      int
}

// NewEmbeddingService creates a new embedding service. model is the stable
// model identifier recorded in the store manifest.
func NewEmbeddingService(embedder embedding.Embedder, model string) *EmbeddingService {
	return &EmbeddingService{
		embedder: embedder,
		model:    model,
	}
}

// Embed generates an embedding vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.embedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	result := toFloat32(vectors[0])
	if err := s.checkDimension(len(result)); err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedBatch generates embedding vectors for multiple texts, preserving
// order. All vectors are validated against the service dimension.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	vectors, err := s.embedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}

	result := make([][]float32, len(vectors))
	for i, vec := range vectors {
		result[i] = toFloat32(vec)
		if err := s.checkDimension(len(result[i])); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// embedStrings calls the underlying embedder with bounded retry for
// transient failures. Context cancellation stops the retry loop.
func (s *EmbeddingService) embedStrings(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt < embedMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedRetryDelay * time.Duration(attempt)):
			}
		}
		vectors, err := s.embedder.EmbedStrings(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// checkDimension records the dimension on the first call and rejects any
// later mismatch.
func (s *EmbeddingService) checkDimension(got int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = got
		return nil
	}
	if got != s.dim {
		return fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			ErrDimensionMismatch, s.model, got, s.dim)
	}
	return nil
}

// Dimension returns the embedding dimension, or 0 before the first call.
func (s *EmbeddingService) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// Model returns the stable model identifier.
func (s *EmbeddingService) Model() string {
	return s.model
}

// toFloat32 narrows an embedding vector for storage.
func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
