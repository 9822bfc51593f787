package models

import (
	"strconv"
	"time"
)

// Document is the text extracted from one source file. Multi-part formats
// (PDF pages, spreadsheet sheets) are flattened into a single Document.
type Document struct {
	Text        string
	Source      string // absolute path of the originating file
	ContentHash string // set during indexing, empty at extraction time
}

// Chunk is a bounded slice of a Document's text. Index is the chunk's
// position within its parent Document, starting at 0.
type Chunk struct {
	Text        string
	Source      string
	ContentHash string
	Index       int
}

// ID returns the chunk identity used as the dedup/idempotency key in the
// vector index. The "{content_hash}-{chunk_index}" format must survive any
// index migration.
func (c Chunk) ID() string {
	return c.ContentHash + "-" + strconv.Itoa(c.Index)
}

// ChunkEntry is the persisted vector index record for one chunk.
type ChunkEntry struct {
	ChunkID     string    `bson:"chunk_id" json:"chunk_id"`
	Text        string    `bson:"text" json:"text"`
	Vector      []float32 `bson:"vector" json:"-"`
	Source      string    `bson:"source" json:"source"`
	ContentHash string    `bson:"content_hash" json:"content_hash"`
	ChunkIndex  int       `bson:"chunk_index" json:"chunk_index"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// SearchResult pairs a stored chunk with its distance to the query.
// Distance is non-negative; smaller means more similar.
type SearchResult struct {
	Entry    ChunkEntry
	Distance float64
}

// Source is one citation returned alongside an answer. Distance is
// pre-formatted to three decimal places.
type Source struct {
	Source     string `json:"source"`
	Distance   string `json:"distance"`
	ChunkIndex string `json:"chunk_index"`
}

// IndexStats summarises the vector index for the debug endpoint.
type IndexStats struct {
	Chunks         int64               `json:"chunks"`
	ContentHashes  int64               `json:"content_hashes"`
	SampleMetadata []map[string]string `json:"sample_metadata,omitempty"`
}

// IndexResult is the outcome of one reindex run.
type IndexResult struct {
	NewDocuments int    `json:"new_documents"`
	NewChunks    int    `json:"new_chunks"`
	Message      string `json:"message"`
}
