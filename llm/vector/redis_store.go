package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"docent/llm"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	fieldContent    = "content"
	fieldVector     = "vector"
	fieldSource     = "source"
	fieldDocType    = "doc_type"
	fieldTitle      = "title"
	fieldChunkIndex = "chunk_index"
	fieldCreatedAt  = "created_at"
	fieldScore      = "score"
)

// RedisStore implements Store using Redis with a RediSearch HNSW vector
// index. The index distance metric is cosine; scores returned by Query are
// 1 - distance so that higher still means nearer.
type RedisStore struct {
	client *redis.Client
	cfg    StoreConfig

	mu           sync.Mutex
	indexCreated bool
	dim          int
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisStore connects to Redis and opens the collection cfg.Name. The
// stored manifest is verified against cfg.EmbeddingModel so a model swap
// between ingestion and query fails at open.
func NewRedisStore(ctx context.Context, rcfg RedisConfig, cfg StoreConfig) (*RedisStore, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("store name is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
		PoolSize: rcfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := &RedisStore{
		client: client,
		cfg:    cfg,
		dim:    cfg.Dim,
	}
	if err := s.verifyManifest(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *RedisStore) keyPrefix() string {
	return "docent:" + s.cfg.Name + ":"
}

func (s *RedisStore) metaKey() string {
	return "docent:meta:" + s.cfg.Name
}

// verifyManifest checks the stored embedding model and dimension, failing
// fast on a mismatch rather than letting similarity quietly degrade.
func (s *RedisStore) verifyManifest(ctx context.Context) error {
	meta, err := s.client.HGetAll(ctx, s.metaKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to read store manifest: %w", err)
	}
	if len(meta) == 0 {
		return nil
	}

	if model := meta["embedding_model"]; model != "" && s.cfg.EmbeddingModel != "" &&
		model != s.cfg.EmbeddingModel {
		return fmt.Errorf("%w: collection %s was built with embedding model %q, configured model is %q; re-run ingestion",
			ErrDimensionMismatch, s.cfg.Name, model, s.cfg.EmbeddingModel)
	}
	if d, err := strconv.Atoi(meta["dim"]); err == nil && d > 0 {
		if s.cfg.Dim != 0 && d != s.cfg.Dim {
			return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, configured dimension is %d",
				ErrDimensionMismatch, s.cfg.Name, d, s.cfg.Dim)
		}
		s.dim = d
	}
	return nil
}

// ensureIndex creates the HNSW index once the dimension is known.
func (s *RedisStore) ensureIndex(ctx context.Context, dim int) error {
	if s.indexCreated {
		return nil
	}

	if _, err := s.client.Do(ctx, "FT.INFO", s.cfg.Name).Result(); err == nil {
		s.indexCreated = true
		return nil
	}

	_, err := s.client.Do(ctx, "FT.CREATE", s.cfg.Name,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldDocType, "TAG",
		fieldTitle, "TEXT",
		fieldChunkIndex, "NUMERIC",
		fieldCreatedAt, "NUMERIC",
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	s.indexCreated = true
	return nil
}

// Reset drops the index together with its documents and the manifest.
func (s *RedisStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.client.Do(ctx, "FT.DROPINDEX", s.cfg.Name, "DD").Result()
	if err != nil && !strings.Contains(err.Error(), "Unknown Index name") &&
		!strings.Contains(err.Error(), "no such index") {
		return fmt.Errorf("failed to drop index: %w", err)
	}

	if err := s.client.Del(ctx, s.metaKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete store manifest: %w", err)
	}

	s.indexCreated = false
	s.dim = s.cfg.Dim
	return nil
}

// Add inserts embedded documents with a pipeline, creating the index and
// writing the manifest on first use.
func (s *RedisStore) Add(ctx context.Context, docs []llm.Document) error {
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

	if err := s.ensureIndex(ctx, s.dim); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	now := time.Now().Unix()
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		pipe.HSet(ctx, s.keyPrefix()+doc.ID,
			fieldContent, doc.Content,
			fieldVector, encodeVector(doc.Vector),
			fieldSource, escapeTag(doc.Source),
			fieldDocType, escapeTag(doc.DocType),
			fieldTitle, doc.Title,
			fieldChunkIndex, doc.ChunkIndex,
			fieldCreatedAt, now,
		)
	}
	pipe.HSet(ctx, s.metaKey(),
		"embedding_model", s.cfg.EmbeddingModel,
		"dim", s.dim,
	)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// Query runs a KNN search ordered by vector distance.
func (s *RedisStore) Query(ctx context.Context, vec []float32, k int) ([]llm.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if s.dim != 0 && len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store has %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", k, fieldVector, fieldScore)
	result, err := s.client.Do(ctx, "FT.SEARCH", s.cfg.Name, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(vec),
		"RETURN", "6", fieldContent, fieldSource, fieldDocType, fieldTitle, fieldChunkIndex, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		if strings.Contains(err.Error(), "Unknown Index name") ||
			strings.Contains(err.Error(), "no such index") {
			return []llm.SearchResult{}, nil
		}
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return s.parseSearchResults(result)
}

// parseSearchResults parses the FT.SEARCH reply: a count followed by
// alternating (id, field list) pairs.
func (s *RedisStore) parseSearchResults(result interface{}) ([]llm.SearchResult, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search result format")
	}
	if len(values) < 2 {
		return []llm.SearchResult{}, nil
	}

	var results []llm.SearchResult
	for i := 1; i+1 < len(values); i += 2 {
		docID, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		doc, score := s.parseDocumentFields(strings.TrimPrefix(docID, s.keyPrefix()), fields)
		results = append(results, llm.SearchResult{Document: doc, Score: score})
	}
	return results, nil
}

// parseDocumentFields decodes a field list into a document and its score.
// The index returns cosine distance; it is converted to a similarity.
func (s *RedisStore) parseDocumentFields(id string, fields []interface{}) (llm.Document, float32) {
	doc := llm.Document{ID: id}
	var score float32

	for i := 0; i+1 < len(fields); i += 2 {
		name, ok := fields[i].(string)
		if !ok {
			continue
		}
		value, ok := fields[i+1].(string)
		if !ok {
			continue
		}

		switch name {
		case fieldContent:
			doc.Content = value
		case fieldSource:
			doc.Source = unescapeTag(value)
		case fieldDocType:
			doc.DocType = unescapeTag(value)
		case fieldTitle:
			doc.Title = value
		case fieldChunkIndex:
			if n, err := strconv.Atoi(value); err == nil {
				doc.ChunkIndex = n
			}
		case fieldScore:
			if dist, err := strconv.ParseFloat(value, 32); err == nil {
				score = 1 - float32(dist)
			}
		}
	}
	return doc, score
}

// Count reads num_docs from FT.INFO; a missing index counts as empty.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	info, err := s.client.Do(ctx, "FT.INFO", s.cfg.Name).Result()
	if err != nil {
		if strings.Contains(err.Error(), "Unknown Index name") ||
			strings.Contains(err.Error(), "no such index") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get index info: %w", err)
	}

	values, ok := info.([]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected index info format")
	}
	for i := 0; i+1 < len(values); i += 2 {
		if key, ok := values[i].(string); ok && key == "num_docs" {
			switch v := values[i+1].(type) {
			case int64:
				return v, nil
			case string:
				n, err := strconv.ParseInt(v, 10, 64)
				if err == nil {
					return n, nil
				}
			}
		}
	}
	return 0, nil
}

// Dimension returns the collection's vector dimensionality, 0 when unknown.
func (s *RedisStore) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// encodeVector encodes a float32 vector as the little-endian byte blob
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// escapeTag escapes TAG separator characters in field values.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", "\\,")
	return strings.ReplaceAll(s, " ", "\\ ")
}

// unescapeTag reverses escapeTag.
func unescapeTag(s string) string {
	s = strings.ReplaceAll(s, "\\,", ",")
	return strings.ReplaceAll(s, "\\ ", " ")
}
