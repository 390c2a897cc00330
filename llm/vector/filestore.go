package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docent/llm"
)

const fileStoreVersion = "1"

// fileStoreData is the on-disk layout of a file store collection. The
// manifest fields let a reopen detect that the embedding model or its
// dimensionality changed since the collection was built.
type fileStoreData struct {
	Version        string         `json:"version"`
	EmbeddingModel string         `json:"embedding_model"`
	Dim            int            `json:"dim"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
	Documents      []llm.Document `json:"documents"`
}

// FileStore is a Store persisted as a single JSON file in a named local
// directory. Queries are brute-force cosine similarity, which is plenty for
// a knowledge base of a few thousand chunks. Safe for concurrent reads.
type FileStore struct {
	path string
	cfg  StoreConfig

	mu        sync.RWMutex
	docs      []llm.Document
	dim       int
	createdAt time.Time
}

// NewFileStore opens (or lazily creates) the collection cfg.Name under dir.
// An existing collection built with a different embedding model or dimension
// is rejected with ErrDimensionMismatch.
func NewFileStore(dir string, cfg StoreConfig) (*FileStore, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("store name is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:      filepath.Join(dir, cfg.Name+".json"),
		cfg:       cfg,
		dim:       cfg.Dim,
		createdAt: time.Now(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the collection file if it exists and verifies its manifest
// against the configured model.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read store file: %w", err)
	}

	var stored fileStoreData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}

	if s.cfg.EmbeddingModel != "" && stored.EmbeddingModel != "" &&
		stored.EmbeddingModel != s.cfg.EmbeddingModel {
		return fmt.Errorf("%w: store %s was built with embedding model %q, configured model is %q; re-run ingestion",
			ErrDimensionMismatch, s.path, stored.EmbeddingModel, s.cfg.EmbeddingModel)
	}
	if s.cfg.Dim != 0 && stored.Dim != 0 && stored.Dim != s.cfg.Dim {
		return fmt.Errorf("%w: store %s holds %d-dimensional vectors, configured dimension is %d; re-run ingestion",
			ErrDimensionMismatch, s.path, stored.Dim, s.cfg.Dim)
	}

	s.docs = stored.Documents
	s.dim = stored.Dim
	if t, err := time.Parse(time.RFC3339, stored.CreatedAt); err == nil {
		s.createdAt = t
	}
	return nil
}

// save writes the collection atomically (temp file + rename) so a crashed
// ingestion run never leaves a truncated collection behind.
func (s *FileStore) save() error {
	stored := fileStoreData{
		Version:        fileStoreVersion,
		EmbeddingModel: s.cfg.EmbeddingModel,
		Dim:            s.dim,
		CreatedAt:      s.createdAt.Format(time.RFC3339),
		UpdatedAt:      time.Now().Format(time.RFC3339),
		Documents:      s.docs,
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal store data: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Reset deletes the persisted collection and clears the in-memory state.
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = nil
	s.dim = s.cfg.Dim
	s.createdAt = time.Now()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete store file: %w", err)
	}
	return nil
}

// Add inserts embedded documents and persists the collection.
func (s *FileStore) Add(ctx context.Context, docs []llm.Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range docs {
		if len(docs[i].Vector) == 0 {
			return fmt.Errorf("document %d has no vector", i)
		}
		if s.dim == 0 {
			s.dim = len(docs[i].Vector)
		}
		if len(docs[i].Vector) != s.dim {
			return fmt.Errorf("%w: document %d has %d dimensions, store has %d",
				ErrDimensionMismatch, i, len(docs[i].Vector), s.dim)
		}
	}

	now := time.Now().Format(time.RFC3339)
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.CreatedAt == "" {
			doc.CreatedAt = now
		}
		s.docs = append(s.docs, doc)
	}

	return s.save()
}

// Query returns the min(k, Count) nearest documents by cosine similarity.
func (s *FileStore) Query(ctx context.Context, vec []float32, k int) ([]llm.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return []llm.SearchResult{}, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store has %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}

	results := make([]llm.SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, llm.SearchResult{
			Document: doc,
			Score:    cosineSimilarity(vec, doc.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count returns the number of stored vectors.
func (s *FileStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// Dimension returns the store's vector dimensionality, 0 when empty and
// unconfigured.
func (s *FileStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Close is a no-op; Add persists eagerly.
func (s *FileStore) Close() error {
	return nil
}

// cosineSimilarity computes the cosine similarity of two equal-length
// vectors. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
