package memory

import (
	"fmt"
	"testing"
)

func TestLogAppendOrder(t *testing.T) {
	log := NewLog(nil)
	for i := 0; i < 5; i++ {
		log.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := log.All()
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.Index != i {
			t.Errorf("turn %d has index %d", i, turn.Index)
		}
		if turn.Question != fmt.Sprintf("q%d", i) || turn.Answer != fmt.Sprintf("a%d", i) {
			t.Errorf("turn %d out of order: %+v", i, turn)
		}
	}
}

func TestFullHistoryReplaysEverything(t *testing.T) {
	log := NewLog(FullHistory{})
	for i := 0; i < 10; i++ {
		log.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	if got := len(log.History()); got != 10 {
		t.Errorf("expected full history of 10 turns, got %d", got)
	}
}

func TestWindowReplaysLastN(t *testing.T) {
	log := NewLog(Window{N: 3})
	for i := 0; i < 10; i++ {
		log.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	history := log.History()
	if len(history) != 3 {
		t.Fatalf("expected window of 3 turns, got %d", len(history))
	}
	if history[0].Question != "q7" || history[2].Question != "q9" {
		t.Errorf("window holds wrong turns: %+v", history)
	}

	// The full log is untouched by the window.
	if log.Len() != 10 {
		t.Errorf("expected 10 recorded turns, got %d", log.Len())
	}
}

func TestWindowShorterThanN(t *testing.T) {
	log := NewLog(Window{N: 5})
	log.Append("q0", "a0")
	if got := len(log.History()); got != 1 {
		t.Errorf("expected 1 turn, got %d", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	log := NewLog(nil)
	log.Append("question", "answer")

	history := log.History()
	history[0].Answer = "mutated"

	if log.All()[0].Answer != "answer" {
		t.Error("mutating the returned history changed the log")
	}
}
