// Package vecbridge is a vector-store SDK over a document-search engine.
// Records live in named collections; each collection is described by a
// CollectionModel built from struct tags or an explicit definition, stored as
// JSON documents, and searched by vector similarity, optionally fused with
// keyword retrieval.
//
// The entry point is Client; typed access goes through Collection, schemaless
// access through DynamicCollection.
package vecbridge

import (
	"github.com/kailas-cloud/vecbridge/internal/model"
)

// Type is the storage-independent semantic type of a key or data property.
type Type = model.Type

// Semantic property types.
const (
	TypeString  = model.TypeString
	TypeBool    = model.TypeBool
	TypeInt8    = model.TypeInt8
	TypeInt16   = model.TypeInt16
	TypeInt32   = model.TypeInt32
	TypeInt64   = model.TypeInt64
	TypeUint64  = model.TypeUint64
	TypeFloat32 = model.TypeFloat32
	TypeFloat64 = model.TypeFloat64
	TypeDate    = model.TypeDate
	TypeUUID    = model.TypeUUID
)

// DistanceFunction selects the similarity measure for a vector property.
type DistanceFunction = model.DistanceFunction

// Supported distance functions. The default is cosine.
const (
	DistanceCosine          = model.DistanceCosine
	DistanceDotProduct      = model.DistanceDotProduct
	DistanceL2Norm          = model.DistanceL2Norm
	DistanceMaxInnerProduct = model.DistanceMaxInnerProduct
)

// IndexKind selects the vector index algorithm and quantization.
type IndexKind = model.IndexKind

// Supported index kinds. The default is int8_hnsw.
const (
	IndexHNSW     = model.IndexHNSW
	IndexInt8HNSW = model.IndexInt8HNSW
	IndexInt4HNSW = model.IndexInt4HNSW
	IndexBBQHNSW  = model.IndexBBQHNSW
	IndexFlat     = model.IndexFlat
	IndexInt8Flat = model.IndexInt8Flat
	IndexBBQFlat  = model.IndexBBQFlat
)

// Embedding wraps a dense vector value. It marshals as a flat numeric array.
type Embedding = model.Embedding

// NewEmbedding creates an Embedding over the given values.
func NewEmbedding(values []float32) Embedding { return model.NewEmbedding(values) }

// EmbeddingGenerator produces a dense vector from text input. Attach one to a
// vector property to embed raw text at write and search time.
type EmbeddingGenerator = model.EmbeddingGenerator

// RecordDefinition describes a dynamic record's schema explicitly, for
// collections whose shape is only known at runtime.
type RecordDefinition = model.Definition

// KeyDefinition describes the key property of a RecordDefinition.
type KeyDefinition = model.KeyDefinition

// DataDefinition describes a data property of a RecordDefinition.
type DataDefinition = model.DataDefinition

// VectorDefinition describes a vector property of a RecordDefinition.
type VectorDefinition = model.VectorDefinition
