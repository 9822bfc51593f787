package services

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"

	"ragis-server/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	return []float32{
		float32(seed%97) + 1,
		float32(seed%53) + 1,
		float32(seed%31) + 1,
	}, nil
}

func (f *fakeEmbedder) embedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testParams(dir string) models.Params {
	return models.Params{
		ChunkSize:         200,
		ChunkOverlap:      20,
		TopK:              8,
		DistanceThreshold: 0.6,
		ExcludedExts:      []string{".png", ".jpg"},
		DataDir:           dir,
	}
}

func TestReindexIsIncremental(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "The first document talks about alpha.")
	writeFile(t, dir, "two.txt", "The second document talks about beta.")

	store := NewMemoryStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(store, embedder)
	ctx := context.Background()

	result, err := ix.Reindex(ctx, testParams(dir))
	if err != nil {
		t.Fatalf("first reindex: %v", err)
	}
	if result.NewDocuments != 2 {
		t.Fatalf("expected 2 new documents, got %d", result.NewDocuments)
	}
	firstCalls := embedder.embedCalls()

	result, err = ix.Reindex(ctx, testParams(dir))
	if err != nil {
		t.Fatalf("second reindex: %v", err)
	}
	if result.NewDocuments != 0 || result.NewChunks != 0 {
		t.Fatalf("unchanged corpus was re-indexed: %+v", result)
	}
	if result.Message != "no new documents" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if embedder.embedCalls() != firstCalls {
		t.Fatal("embedder was called for already indexed content")
	}
}

func TestReindexDeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "original.txt", "Identical content in two files.")
	writeFile(t, dir, "copy.txt", "Identical content in two files.")

	store := NewMemoryStore()
	ix := NewIndexer(store, &fakeEmbedder{})

	result, err := ix.Reindex(context.Background(), testParams(dir))
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if result.NewDocuments != 1 {
		t.Fatalf("duplicate content indexed twice: %d documents", result.NewDocuments)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.ContentHashes != 1 {
		t.Fatalf("expected 1 content hash, got %d", stats.ContentHashes)
	}
}

func TestReindexPicksUpChangedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "Original wording of the document.")

	store := NewMemoryStore()
	ix := NewIndexer(store, &fakeEmbedder{})
	ctx := context.Background()

	if _, err := ix.Reindex(ctx, testParams(dir)); err != nil {
		t.Fatalf("first reindex: %v", err)
	}

	if err := os.WriteFile(path, []byte("Revised wording of the document."), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := ix.Reindex(ctx, testParams(dir))
	if err != nil {
		t.Fatalf("second reindex: %v", err)
	}
	if result.NewDocuments != 1 {
		t.Fatalf("changed content not re-indexed: %+v", result)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ContentHashes != 2 {
		t.Fatalf("expected old and new hash in index, got %d", stats.ContentHashes)
	}
}

func TestReindexSkipsExcludedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "Indexable document text.")
	writeFile(t, dir, "image.png", "pretend image bytes")

	store := NewMemoryStore()
	ix := NewIndexer(store, &fakeEmbedder{})

	result, err := ix.Reindex(context.Background(), testParams(dir))
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if result.NewDocuments != 1 {
		t.Fatalf("excluded extension was indexed: %+v", result)
	}
}

func TestReindexChunkIdentity(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "long.txt",
		strings.Repeat("Sentence number one is here. ", 20))

	hash, err := FileHash(path)
	if err != nil {
		t.Fatal(err)
	}

	store := NewMemoryStore()
	ix := NewIndexer(store, &fakeEmbedder{})

	params := testParams(dir)
	params.ChunkSize = 120
	params.ChunkOverlap = 0
	result, err := ix.Reindex(context.Background(), params)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if result.NewChunks < 2 {
		t.Fatalf("expected document to split into multiple chunks, got %d", result.NewChunks)
	}

	results, err := store.Search(context.Background(), []float32{1, 1, 1}, 100)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Entry.ContentHash != hash {
			t.Fatalf("chunk carries wrong content hash: %q", r.Entry.ContentHash)
		}
		if want := hash + "-"; !strings.HasPrefix(r.Entry.ChunkID, want) {
			t.Fatalf("chunk id %q does not start with %q", r.Entry.ChunkID, want)
		}
		seen[r.Entry.ChunkID] = true
	}
	if len(seen) != result.NewChunks {
		t.Fatalf("chunk ids are not unique: %d ids for %d chunks", len(seen), result.NewChunks)
	}
}

func TestReindexRejectsConcurrentRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "Some document text to embed.")

	store := NewMemoryStore()
	embedder := &fakeEmbedder{block: make(chan struct{})}
	ix := NewIndexer(store, embedder)

	done := make(chan error, 1)
	go func() {
		_, err := ix.Reindex(context.Background(), testParams(dir))
		done <- err
	}()

	for !ix.Busy() {
		runtime.Gosched()
	}

	if _, err := ix.Reindex(context.Background(), testParams(dir)); !errors.Is(err, ErrIndexerBusy) {
		t.Fatalf("expected ErrIndexerBusy, got %v", err)
	}

	close(embedder.block)
	if err := <-done; err != nil {
		t.Fatalf("blocked reindex failed: %v", err)
	}
	if ix.Busy() {
		t.Fatal("indexer still busy after completion")
	}
}
