package vector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

// stubEmbedder is a deterministic embedding model: each vector encodes the
// text's length so tests can verify ordering.
type stubEmbedder struct {
	dim   int
	calls int
	err   error
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, s.dim)
		vec[0] = float64(len(text))
		out[i] = vec
	}
	return out, nil
}

func TestEmbeddingServiceEmbed(t *testing.T) {
	svc := NewEmbeddingService(&stubEmbedder{dim: 4}, "stub-model")

	vec, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(vec))
	}
	if svc.Dimension() != 4 {
		t.Errorf("service should learn dimension 4, got %d", svc.Dimension())
	}
}

func TestEmbeddingServiceEmbedEmpty(t *testing.T) {
	svc := NewEmbeddingService(&stubEmbedder{dim: 4}, "stub-model")
	if _, err := svc.Embed(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestEmbeddingServiceBatchPreservesOrder(t *testing.T) {
	svc := NewEmbeddingService(&stubEmbedder{dim: 2}, "stub-model")

	texts := []string{"a", "bb", "ccc"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: got %f, want %d", i, vecs[i][0], len(text))
		}
	}
}

func TestEmbeddingServiceBatchRejectsEmptyText(t *testing.T) {
	svc := NewEmbeddingService(&stubEmbedder{dim: 2}, "stub-model")
	if _, err := svc.EmbedBatch(context.Background(), []string{"ok", ""}); err == nil {
		t.Fatal("expected error for empty text in batch")
	}
}

func TestEmbeddingServiceDimensionDrift(t *testing.T) {
	stub := &stubEmbedder{dim: 4}
	svc := NewEmbeddingService(stub, "stub-model")

	if _, err := svc.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first embed failed: %v", err)
	}

	stub.dim = 8
	_, err := svc.Embed(context.Background(), "second")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch after drift, got %v", err)
	}
}

func TestEmbeddingServiceContextCancelStopsRetry(t *testing.T) {
	stub := &stubEmbedder{dim: 4, err: fmt.Errorf("upstream unavailable")}
	svc := NewEmbeddingService(stub, "stub-model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Embed(ctx, "question")
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if stub.calls > 1 {
		t.Errorf("expected retry to stop on cancelled context, got %d calls", stub.calls)
	}
}
