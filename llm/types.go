// Package llm holds the shared data model for the docent knowledge base:
// documents loaded from disk, the chunks they are split into, and the
// results returned by vector retrieval.
package llm

// Document represents one knowledge-base file, or a single chunk of it once
// it has passed through the chunker. DocType is the name of the category
// folder the file was found under. Vector is empty until embedding.
type Document struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	DocType    string                 `json:"doc_type"`
	Title      string                 `json:"title"`
	ChunkIndex int                    `json:"chunk_index"`
	Vector     []float32              `json:"vector,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  string                 `json:"created_at,omitempty"`
}

// SearchResult pairs a stored chunk with its similarity score for one query.
// Results are ordered nearest-first and are never persisted.
type SearchResult struct {
	Document Document
	Score    float32
}
