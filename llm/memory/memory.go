// Package memory keeps the conversation log for a chat session: an
// append-only sequence of question/answer turns. How much of the log is
// replayed to the model each turn is a pluggable strategy; the default
// resends everything, which matches the reference behavior but grows without
// bound over a long session.
package memory

import "sync"

// Turn is one completed question/answer exchange. Index is the turn's
// ordinal position, starting at 0.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Index    int    `json:"index"`
}

// Strategy selects which recorded turns are replayed as context for the next
// question. Implementations must not mutate the input slice.
type Strategy interface {
	Select(turns []Turn) []Turn
}

// FullHistory replays every turn. This is the compatibility default.
type FullHistory struct{}

// Select returns all turns.
func (FullHistory) Select(turns []Turn) []Turn { return turns }

// Window replays only the most recent N turns.
type Window struct {
	N int
}

// Select returns the last N turns.
func (w Window) Select(turns []Turn) []Turn {
	if w.N <= 0 || len(turns) <= w.N {
		return turns
	}
	return turns[len(turns)-w.N:]
}

// Log is a thread-safe conversation log. Turns are only ever appended; a
// failed turn is never recorded, so the log cannot hold half-written
// entries.
type Log struct {
	mu       sync.RWMutex
	turns    []Turn
	strategy Strategy
}

// NewLog creates a log with the given replay strategy; nil means
// FullHistory.
func NewLog(strategy Strategy) *Log {
	if strategy == nil {
		strategy = FullHistory{}
	}
	return &Log{strategy: strategy}
}

// Append records a completed turn at the end of the log.
func (l *Log) Append(question, answer string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, Turn{
		Question: question,
		Answer:   answer,
		Index:    len(l.turns),
	})
}

// History returns the turns the strategy selects for prompting, as a copy,
// in append order.
func (l *Log) History() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	selected := l.strategy.Select(l.turns)
	out := make([]Turn, len(selected))
	copy(out, selected)
	return out
}

// All returns every recorded turn, as a copy, in append order.
func (l *Log) All() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of recorded turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}
