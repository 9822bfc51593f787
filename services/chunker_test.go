package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"ragis-server/models"
)

func TestNewChunkerValidation(t *testing.T) {
	if _, err := NewChunker(0, 0); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
	if _, err := NewChunker(100, 100); err == nil {
		t.Fatal("expected error for overlap == size")
	}
	if _, err := NewChunker(100, 150); err == nil {
		t.Fatal("expected error for overlap > size")
	}
	if _, err := NewChunker(100, -1); err == nil {
		t.Fatal("expected error for negative overlap")
	}
	if _, err := NewChunker(100, 20); err != nil {
		t.Fatalf("valid parameters rejected: %v", err)
	}
}

func TestSplitTextRespectsBudget(t *testing.T) {
	c, err := NewChunker(50, 10)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("alpha beta gamma delta. ", 30)
	chunks := c.SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 50 {
			t.Fatalf("chunk %d exceeds budget: %d chars", i, len(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	c, err := NewChunker(80, 20)
	if err != nil {
		t.Fatal(err)
	}

	text := "First paragraph here.\n\nSecond paragraph with more words in it.\n\nThird one."
	a := c.SplitText(text)
	b := c.SplitText(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	c, err := NewChunker(40, 0)
	if err != nil {
		t.Fatal(err)
	}

	text := "Short first paragraph.\n\nShort second paragraph."
	chunks := c.SplitText(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 paragraph chunks, got %d: %q", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0], "first") || !strings.Contains(chunks[1], "second") {
		t.Fatalf("paragraphs not preserved: %q", chunks)
	}
}

func TestSplitTextHardCutLongWord(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.SplitText(strings.Repeat("x", 25))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 hard-cut chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk) > 10 {
			t.Fatalf("hard-cut chunk too long: %d", len(chunk))
		}
	}
}

func TestSplitTextHardCutKeepsRunesIntact(t *testing.T) {
	c, err := NewChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}

	// 9 three-byte runes, 27 bytes, no separators: byte offset 10 falls
	// inside a rune.
	chunks := c.SplitText(strings.Repeat("世", 9))
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 hard-cut chunks, got %d", len(chunks))
	}
	total := 0
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, chunk)
		}
		if len(chunk) > 10 {
			t.Fatalf("chunk %d exceeds budget: %d bytes", i, len(chunk))
		}
		total += utf8.RuneCountInString(chunk)
	}
	if total != 9 {
		t.Fatalf("runes lost across cuts: got %d, want 9", total)
	}
}

func TestSplitDocumentsChunkIdentity(t *testing.T) {
	c, err := NewChunker(30, 5)
	if err != nil {
		t.Fatal(err)
	}

	doc := models.Document{
		Text:        "One two three four five six.\n\nSeven eight nine ten eleven.\n\nTwelve thirteen fourteen.",
		Source:      "/data/sample.txt",
		ContentHash: "cafebabe",
	}

	chunks := c.SplitDocuments([]models.Document{doc})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d, want monotonically increasing", i, chunk.Index)
		}
		wantID := "cafebabe-" + string(rune('0'+i))
		if chunk.ID() != wantID {
			t.Fatalf("chunk identity %q, want %q", chunk.ID(), wantID)
		}
		if chunk.Source != doc.Source || chunk.ContentHash != doc.ContentHash {
			t.Fatalf("chunk %d lost metadata: %+v", i, chunk)
		}
	}
}

func TestSplitDocumentsIndexesPerDocument(t *testing.T) {
	c, err := NewChunker(1000, 0)
	if err != nil {
		t.Fatal(err)
	}

	docs := []models.Document{
		{Text: "doc one text", Source: "/a", ContentHash: "h1"},
		{Text: "doc two text", Source: "/b", ContentHash: "h2"},
	}
	chunks := c.SplitDocuments(docs)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID() != "h1-0" || chunks[1].ID() != "h2-0" {
		t.Fatalf("chunk indexes are not per-document: %q %q", chunks[0].ID(), chunks[1].ID())
	}
}
