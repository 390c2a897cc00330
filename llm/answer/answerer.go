// Package answer runs one chat turn end to end: embed the question,
// retrieve the nearest knowledge-base chunks, assemble the prompt with the
// conversation history, call the chat model, and record the completed turn.
package answer

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"docent/llm"
	"docent/llm/memory"
	"docent/llm/vector"
	"docent/pubsub"
)

// Source describes where part of an answer came from.
type Source struct {
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	DocType string  `json:"doc_type"`
	Score   float32 `json:"score"`
}

// Result is the outcome of one successful turn.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Event is the broker payload user interfaces consume. Exactly one of
// Answer or Err is set on a terminal event.
type Event struct {
	Question string
	Answer   string
	Sources  []Source
	Err      string
}

// Config wires an Answerer.
type Config struct {
	Embeddings *vector.EmbeddingService
	Store      vector.Store
	ChatModel  model.BaseChatModel
	Memory     *memory.Log
	Logger     *zap.Logger
	// TopK is how many chunks are retrieved per question.
	TopK int
	// Temperature is passed through to the chat model.
	Temperature float32
}

// Answerer orchestrates chat turns. Turns are serialized: turn N completes,
// or fails cleanly, before turn N+1 starts, so the conversation log always
// reflects a consistent order.
type Answerer struct {
	embeddings  *vector.EmbeddingService
	store       vector.Store
	chatModel   model.BaseChatModel
	mem         *memory.Log
	broker      *pubsub.Broker[Event]
	logger      *zap.Logger
	topK        int
	temperature float32

	mu sync.Mutex
}

// New creates an Answerer from cfg.
func New(cfg Config) (*Answerer, error) {
	if cfg.Embeddings == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Memory == nil {
		cfg.Memory = memory.NewLog(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}

	return &Answerer{
		embeddings:  cfg.Embeddings,
		store:       cfg.Store,
		chatModel:   cfg.ChatModel,
		mem:         cfg.Memory,
		broker:      pubsub.NewBroker[Event](),
		logger:      cfg.Logger,
		topK:        cfg.TopK,
		temperature: cfg.Temperature,
	}, nil
}

// Ask answers one question. On any failure the conversation log is left
// untouched and the error is returned for the caller to display; the
// session stays usable for the next question. Zero retrieved chunks is not
// a failure: the model is called with an empty context section and trusted
// to say it does not know.
func (a *Answerer) Ask(ctx context.Context, question string) (*Result, error) {
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.broker.Publish(pubsub.QuestionEvent, Event{Question: question})

	qvec, err := a.embeddings.Embed(ctx, question)
	if err != nil {
		return nil, a.fail(question, fmt.Errorf("failed to embed question: %w", err))
	}

	retrieved, err := a.store.Query(ctx, qvec, a.topK)
	if err != nil {
		return nil, a.fail(question, fmt.Errorf("retrieval failed: %w", err))
	}
	a.logger.Debug("retrieved context",
		zap.String("question", question),
		zap.Int("chunks", len(retrieved)))

	msgs := buildMessages(retrieved, a.mem.History(), question)
	resp, err := a.chatModel.Generate(ctx, msgs, model.WithTemperature(a.temperature))
	if err != nil {
		return nil, a.fail(question, fmt.Errorf("chat completion failed: %w", err))
	}

	a.mem.Append(question, resp.Content)

	result := &Result{
		Answer:  resp.Content,
		Sources: toSources(retrieved),
	}
	a.broker.Publish(pubsub.AnswerEvent, Event{
		Question: question,
		Answer:   result.Answer,
		Sources:  result.Sources,
	})
	return result, nil
}

// fail logs and publishes a turn failure, then passes the error through.
func (a *Answerer) fail(question string, err error) error {
	a.logger.Warn("turn failed", zap.String("question", question), zap.Error(err))
	a.broker.Publish(pubsub.ErrorEvent, Event{Question: question, Err: err.Error()})
	return err
}

// Memory returns the conversation log.
func (a *Answerer) Memory() *memory.Log {
	return a.mem
}

// Events returns the broker carrying turn events.
func (a *Answerer) Events() *pubsub.Broker[Event] {
	return a.broker
}

// Close shuts down the event broker.
func (a *Answerer) Close() {
	a.broker.Shutdown()
}

// toSources deduplicates retrieved chunks down to their source files,
// keeping the best score per file.
func toSources(results []llm.SearchResult) []Source {
	var sources []Source
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.Document.Source] {
			continue
		}
		seen[r.Document.Source] = true
		sources = append(sources, Source{
			Title:   r.Document.Title,
			Path:    r.Document.Source,
			DocType: r.Document.DocType,
			Score:   r.Score,
		})
	}
	return sources
}
