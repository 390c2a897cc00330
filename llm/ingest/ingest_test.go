package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docent/llm/loader"
	"docent/llm/vector"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1, 0}
	}
	return out, nil
}

func writeKB(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"policies/refunds.md":  "# Refund policy\n\nRefunds are issued within 30 days.",
		"policies/shipping.md": "# Shipping policy\n\nItems ship within two business days.",
		"faq/returns.md":       "# Returns FAQ\n\nBring the item back with a receipt.",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestIngestor(t *testing.T, root string, store vector.Store) *Ingestor {
	t.Helper()
	ing, err := New(Config{
		Loader:     loader.New(root, "", zap.NewNop()),
		Embeddings: vector.NewEmbeddingService(&fakeEmbedder{}, "fake-model"),
		Store:      store,
		Chunking:   vector.ChunkConfig{ChunkSize: 1000, ChunkOverlap: 100},
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return ing
}

func newTestStore(t *testing.T) *vector.FileStore {
	t.Helper()
	store, err := vector.NewFileStore(t.TempDir(), vector.StoreConfig{
		Name:           "test",
		EmbeddingModel: "fake-model",
	})
	require.NoError(t, err)
	return store
}

func TestIngestPipeline(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ing := newTestIngestor(t, writeKB(t), store)

	summary, err := ing.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 3, summary.Chunks, "short documents chunk one-to-one")
	assert.Equal(t, int64(3), summary.Stored)
	assert.Equal(t, 3, summary.Dim)

	results, err := store.Query(ctx, []float32{50, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotEmpty(t, r.Document.Vector)
		assert.NotEmpty(t, r.Document.DocType)
	}
}

func TestIngestResetsBeforeRebuild(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ing := newTestIngestor(t, writeKB(t), store)

	_, err := ing.Run(ctx)
	require.NoError(t, err)

	// A second run replaces the store instead of appending to it.
	summary, err := ing.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Stored)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIngestMissingRoot(t *testing.T) {
	store := newTestStore(t)
	ing := newTestIngestor(t, filepath.Join(t.TempDir(), "absent"), store)

	_, err := ing.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrMissingRoot), "got %v", err)
}

func TestIngestChunksLongDocuments(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	var long string
	for i := 0; i < 60; i++ {
		long += fmt.Sprintf("This is sentence number %03d in a very long handbook. ", i)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "handbook"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "handbook", "long.md"), []byte(long), 0o644))

	store := newTestStore(t)
	ing, err := New(Config{
		Loader:     loader.New(root, "", zap.NewNop()),
		Embeddings: vector.NewEmbeddingService(&fakeEmbedder{}, "fake-model"),
		Store:      store,
		Chunking:   vector.ChunkConfig{ChunkSize: 300, ChunkOverlap: 50},
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	summary, err := ing.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Greater(t, summary.Chunks, 5)
	assert.Equal(t, int64(summary.Chunks), summary.Stored)
}
