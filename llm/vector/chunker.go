package vector

import (
	"strings"
	"unicode"

	"docent/llm"
)

// ChunkConfig configures how documents are split into chunks.
type ChunkConfig struct {
	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int
	// ChunkOverlap is how much of the previous chunk's tail is repeated at
	// the start of the next one. Must be smaller than ChunkSize.
	ChunkOverlap int
}

// DefaultChunkConfig returns the default chunk configuration.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// SplitDocument splits a document into chunks that inherit its metadata.
// The boundary rule is deterministic: blank-line paragraph boundaries first;
// a paragraph longer than ChunkSize is split on sentence punctuation; a
// sentence longer than ChunkSize is hard-cut at ChunkSize runes. A non-empty
// document shorter than ChunkSize yields exactly one chunk.
func SplitDocument(doc llm.Document, cfg ChunkConfig) []llm.Document {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}

	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return nil
	}

	var pieces []string
	if len(content) <= cfg.ChunkSize {
		pieces = []string{content}
	} else {
		pieces = splitText(content, cfg)
	}

	chunks := make([]llm.Document, len(pieces))
	for i, piece := range pieces {
		chunks[i] = llm.Document{
			Content:    piece,
			Source:     doc.Source,
			DocType:    doc.DocType,
			Title:      doc.Title,
			ChunkIndex: i,
		}
	}
	return chunks
}

// splitText greedily packs paragraphs into chunks of at most ChunkSize,
// carrying an overlap tail from each emitted chunk into the next.
func splitText(content string, cfg ChunkConfig) []string {
	var chunks []string
	var cur strings.Builder

	emit := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			chunks = append(chunks, text)
		}
		cur.Reset()
	}

	// seed starts the next chunk with the tail of the previous one. room is
	// how many bytes the overlap may use without pushing the chunk past
	// ChunkSize once the next atom is added.
	seed := func(room int) {
		if cfg.ChunkOverlap == 0 || len(chunks) == 0 || room <= 0 {
			return
		}
		ov := cfg.ChunkOverlap
		if ov > room {
			ov = room
		}
		cur.WriteString(tailOverlap(chunks[len(chunks)-1], ov))
	}

	add := func(atom, sep string) {
		if cur.Len() > 0 && cur.Len()+len(sep)+len(atom) > cfg.ChunkSize {
			emit()
			seed(cfg.ChunkSize - len(atom) - len(sep))
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(atom)
	}

	for _, para := range splitParagraphs(content) {
		if len(para) <= cfg.ChunkSize {
			add(para, "\n\n")
			continue
		}
		for _, sentence := range splitSentences(para) {
			if len(sentence) <= cfg.ChunkSize {
				add(sentence, " ")
				continue
			}
			for _, piece := range forceSplit(sentence, cfg.ChunkSize, cfg.ChunkOverlap) {
				add(piece, " ")
			}
		}
	}
	emit()

	return chunks
}

// splitParagraphs splits content on blank lines, dropping empty paragraphs.
func splitParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits text on sentence-ending punctuation followed by
// whitespace (or a closing quote/bracket), keeping the punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if isSentenceEnd(runes[i]) {
			next := runeAt(runes, i+1)
			if next == 0 || unicode.IsSpace(next) || next == '"' || next == '\'' || next == ')' || next == ']' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isSentenceEnd reports whether r ends a sentence. Covers CJK punctuation so
// mixed-language corpora split sanely.
func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}

// runeAt returns the rune at index i, or 0 when out of bounds.
func runeAt(runes []rune, i int) rune {
	if i < 0 || i >= len(runes) {
		return 0
	}
	return runes[i]
}

// tailOverlap returns up to size bytes from the end of text, rounded forward
// to the next word boundary so chunks never start mid-word.
func tailOverlap(text string, size int) string {
	if size <= 0 || text == "" {
		return ""
	}
	if size >= len(text) {
		return text
	}

	tail := text[len(text)-size:]
	if sp := strings.IndexAny(tail, " \n"); sp >= 0 {
		return strings.TrimSpace(tail[sp+1:])
	}
	return tail
}

// forceSplit hard-cuts text into windows of at most size runes, stepping
// back by overlap runes between windows.
func forceSplit(text string, size, overlap int) []string {
	var pieces []string

	runes := []rune(text)
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return pieces
}
