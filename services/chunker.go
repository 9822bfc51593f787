package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ragis-server/models"
)

// Chunker splits extracted document text into overlapping windows bounded
// by a size budget, preferring paragraph, then sentence, then word
// boundaries before falling back to a hard cut. Sizes are measured in
// bytes, which matches characters for ASCII-dominant corpora.
type Chunker struct {
	chunkSize int
	overlap   int
}

// separators in order of preference; the empty string means hard cut.
var separators = []string{"\n\n", "\n", ". ", " "}

// NewChunker validates the window parameters. Overlap must be strictly
// smaller than the chunk size.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: chunkOverlap}, nil
}

// SplitDocuments chunks each document independently. Chunk indexes are
// stable and monotonically increasing per document (0, 1, 2, ...) since
// chunk identity depends on them.
func (c *Chunker) SplitDocuments(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		for i, text := range c.SplitText(doc.Text) {
			chunks = append(chunks, models.Chunk{
				Text:        text,
				Source:      doc.Source,
				ContentHash: doc.ContentHash,
				Index:       i,
			})
		}
	}
	return chunks
}

// SplitText returns consecutive windows of at most chunkSize characters,
// with overlap carried over from the end of the previous window.
func (c *Chunker) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pieces := c.splitRecursive(text, 0)
	return c.merge(pieces)
}

// splitRecursive breaks text into fragments no longer than chunkSize,
// trying coarser separators first.
func (c *Chunker) splitRecursive(text string, sepIndex int) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	if sepIndex >= len(separators) {
		// Hard cut: no boundary left to respect. Cuts back off to the
		// previous rune start so a multibyte rune is never split.
		var out []string
		for start := 0; start < len(text); {
			end := start + c.chunkSize
			if end >= len(text) {
				end = len(text)
			} else {
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
				if end == start {
					_, size := utf8.DecodeRuneInString(text[start:])
					end = start + size
				}
			}
			out = append(out, text[start:end])
			start = end
		}
		return out
	}

	sep := separators[sepIndex]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return c.splitRecursive(text, sepIndex+1)
	}

	var out []string
	for i, part := range parts {
		// Keep the separator attached so merged chunks read naturally.
		if i < len(parts)-1 {
			part += sep
		}
		if len(part) > c.chunkSize {
			out = append(out, c.splitRecursive(part, sepIndex+1)...)
		} else if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily packs fragments into windows, seeding each new window
// with the overlap tail of the previous one.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(cur.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
	}

	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+len(piece) > c.chunkSize {
			prev := cur.String()
			flush()
			if c.overlap > 0 {
				tail := overlapTail(prev, c.overlap)
				if len(tail) > 0 && len(tail)+len(piece) <= c.chunkSize {
					cur.WriteString(tail)
				}
			}
		}
		cur.WriteString(piece)
	}
	flush()

	return chunks
}

// overlapTail takes the last n characters of text, advanced to the next
// word boundary so the overlap never starts mid-word.
func overlapTail(text string, n int) string {
	if len(text) <= n {
		return text
	}
	tail := text[len(text)-n:]
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 && idx+1 < len(tail) {
		tail = tail[idx+1:]
	}
	return tail
}
