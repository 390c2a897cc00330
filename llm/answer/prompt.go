package answer

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"docent/llm"
	"docent/llm/memory"
)

const systemPreamble = `You are docent, an assistant that answers questions about a private document collection.
Answer using only the reference excerpts below. If the excerpts do not contain the answer, say that you don't have enough information rather than guessing.
Cite the document a statement comes from where it helps the reader.`

// buildMessages assembles the message list for one turn: a system message
// carrying the retrieved excerpts, the replayed conversation history as
// alternating user/assistant messages, and the new question last.
func buildMessages(retrieved []llm.SearchResult, history []memory.Turn, question string) []*schema.Message {
	msgs := make([]*schema.Message, 0, 2*len(history)+2)
	msgs = append(msgs, schema.SystemMessage(systemPrompt(retrieved)))

	for _, turn := range history {
		msgs = append(msgs, schema.UserMessage(turn.Question))
		msgs = append(msgs, schema.AssistantMessage(turn.Answer, nil))
	}

	msgs = append(msgs, schema.UserMessage(question))
	return msgs
}

// systemPrompt renders the preamble plus the numbered reference excerpts.
// With nothing retrieved the context section states so explicitly.
func systemPrompt(retrieved []llm.SearchResult) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\nReference excerpts:\n")

	if len(retrieved) == 0 {
		b.WriteString("(none found for this question)\n")
		return b.String()
	}

	for i, r := range retrieved {
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n%s\n", i+1, r.Document.Title, r.Document.DocType, r.Document.Content)
	}
	return b.String()
}
