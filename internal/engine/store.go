// Package engine defines the boundary with the backing document store: a
// typed query tree, an index-schema description, and the Store interface the
// rest of vecbridge programs against. Concrete transports live in
// subpackages (redisearch).
package engine

import (
	"context"
	"encoding/json"
	"time"
)

// Document is the wire-level record representation: an externally-managed
// string identifier plus a semi-structured body. The key is never present
// inside the body.
type Document struct {
	ID   string
	Body json.RawMessage
}

// VectorQuery is the nearest-neighbor retrieval leg of a search.
type VectorQuery struct {
	Field  string
	Vector []float32
	K      int
	// Similarity is the target field's similarity function (cosine,
	// dot_product, l2_norm, max_inner_product). Stores use it to turn
	// the engine-reported distance into a score; empty means cosine.
	Similarity string
}

// SearchRequest is a filtered nearest-neighbor search.
type SearchRequest struct {
	Vector VectorQuery
	Filter Query // nil matches everything
	Skip   int
	Size   int
}

// RankFusion configures reciprocal-rank fusion of hybrid retrieval legs.
type RankFusion struct {
	// WindowSize is how many candidates each leg contributes before fusion.
	WindowSize int
	// RankConstant is the RRF k constant (Cormack et al. 2009).
	RankConstant int
}

// Default rank-fusion parameters.
const (
	DefaultRankWindow   = 100
	DefaultRankConstant = 60
)

// HybridRequest combines nearest-neighbor and full-text retrieval. The filter
// constrains both legs, so a document excluded by it cannot surface through
// either.
type HybridRequest struct {
	Vector  VectorQuery
	Keyword Match
	Filter  Query
	Fusion  RankFusion
	Skip    int
	Size    int
}

// Hit is a single scored document from a search.
type Hit struct {
	ID    string
	Score float64
	Body  json.RawMessage
}

// SearchResult holds search hits in engine rank order.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// Store is the backing document-store boundary. Implementations own
// transport concerns (connections, serialization, retries); this layer never
// retries. A "not found" on delete or drop is an idempotent no-op, not an
// error.
type Store interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()

	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, schema *IndexSchema) error
	DeleteIndex(ctx context.Context, name string) error
	ListIndices(ctx context.Context) ([]string, error)

	// GetDocument returns ErrDocumentNotFound for a missing id.
	GetDocument(ctx context.Context, index, id string) (Document, error)
	// GetDocuments fetches ids in one round trip; missing ids yield a
	// Document with empty Body at the matching position.
	GetDocuments(ctx context.Context, index string, ids []string) ([]Document, error)
	IndexDocument(ctx context.Context, index string, doc Document) error
	// IndexDocuments writes all documents in one pipelined round trip.
	IndexDocuments(ctx context.Context, index string, docs []Document) error
	DeleteDocument(ctx context.Context, index, id string) error
	DeleteDocuments(ctx context.Context, index string, ids []string) error

	Search(ctx context.Context, index string, req *SearchRequest) (*SearchResult, error)
	HybridSearch(ctx context.Context, index string, req *HybridRequest) (*SearchResult, error)
}
