// Package ingest rebuilds the vector store from the knowledge base. An
// ingestion run always resets the collection first, so a failed run can be
// re-run without leaving stale or duplicate vectors behind. Documents are
// embedded and committed one at a time: a document's chunks land in the
// store together or not at all.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docent/llm"
	"docent/llm/loader"
	"docent/llm/vector"
)

// Config wires an Ingestor.
type Config struct {
	Loader     *loader.Loader
	Embeddings *vector.EmbeddingService
	Store      vector.Store
	Chunking   vector.ChunkConfig
	Logger     *zap.Logger
}

// Summary reports what an ingestion run produced.
type Summary struct {
	Documents int
	Chunks    int
	Stored    int64
	Dim       int
}

// Ingestor runs the load → chunk → embed → store pipeline.
type Ingestor struct {
	loader     *loader.Loader
	embeddings *vector.EmbeddingService
	store      vector.Store
	chunking   vector.ChunkConfig
	logger     *zap.Logger
}

// New creates an Ingestor from cfg.
func New(cfg Config) (*Ingestor, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if cfg.Embeddings == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking = vector.DefaultChunkConfig()
	}

	return &Ingestor{
		loader:     cfg.Loader,
		embeddings: cfg.Embeddings,
		store:      cfg.Store,
		chunking:   cfg.Chunking,
		logger:     cfg.Logger,
	}, nil
}

// Run rebuilds the store. Any error aborts the run; the operator re-runs
// ingestion to get back to a complete store.
func (in *Ingestor) Run(ctx context.Context) (*Summary, error) {
	if err := in.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset store: %w", err)
	}

	docs, err := in.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Documents: len(docs)}
	for _, doc := range docs {
		n, err := in.ingestDocument(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to ingest %s: %w", doc.Source, err)
		}
		summary.Chunks += n
	}

	count, err := in.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored vectors: %w", err)
	}
	summary.Stored = count
	summary.Dim = in.embeddings.Dimension()

	in.logger.Info("ingestion complete",
		zap.Int("documents", summary.Documents),
		zap.Int("chunks", summary.Chunks),
		zap.Int64("stored", summary.Stored),
		zap.Int("dim", summary.Dim))
	return summary, nil
}

// ingestDocument chunks, embeds, and stores one document. The store sees
// either all of the document's chunks or none of them.
func (in *Ingestor) ingestDocument(ctx context.Context, doc llm.Document) (int, error) {
	chunks := vector.SplitDocument(doc, in.chunking)
	if len(chunks) == 0 {
		in.logger.Warn("document is empty, skipping", zap.String("source", doc.Source))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := in.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].Vector = vectors[i]
	}
	if err := in.store.Add(ctx, chunks); err != nil {
		return 0, err
	}

	in.logger.Debug("document ingested",
		zap.String("source", doc.Source),
		zap.String("doc_type", doc.DocType),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
