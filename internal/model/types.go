package model

import (
	"context"
	"encoding/json"
	"fmt"
)

// Type is the storage-independent semantic type of a key or data property.
type Type string

// Semantic property types.
const (
	TypeString  Type = "string"
	TypeBool    Type = "bool"
	TypeInt8    Type = "int8"
	TypeInt16   Type = "int16"
	TypeInt32   Type = "int32"
	TypeInt64   Type = "int64"
	TypeUint64  Type = "uint64"
	TypeFloat32 Type = "float32"
	TypeFloat64 Type = "float64"
	TypeDate    Type = "date"
	TypeUUID    Type = "uuid"
)

// DistanceFunction selects the similarity measure for a vector property.
type DistanceFunction string

// Supported distance functions.
const (
	DistanceCosine          DistanceFunction = "cosine"
	DistanceDotProduct      DistanceFunction = "dot_product"
	DistanceL2Norm          DistanceFunction = "l2_norm"
	DistanceMaxInnerProduct DistanceFunction = "max_inner_product"
)

// IsValid reports whether the distance function is supported.
func (d DistanceFunction) IsValid() bool {
	switch d {
	case DistanceCosine, DistanceDotProduct, DistanceL2Norm, DistanceMaxInnerProduct:
		return true
	}
	return false
}

// IndexKind selects the vector index algorithm and quantization.
type IndexKind string

// Supported index kinds. Quantized kinds trade recall for memory.
const (
	IndexHNSW     IndexKind = "hnsw"
	IndexInt8HNSW IndexKind = "int8_hnsw"
	IndexInt4HNSW IndexKind = "int4_hnsw"
	IndexBBQHNSW  IndexKind = "bbq_hnsw"
	IndexFlat     IndexKind = "flat"
	IndexInt8Flat IndexKind = "int8_flat"
	IndexBBQFlat  IndexKind = "bbq_flat"
)

// IsValid reports whether the index kind is supported.
func (k IndexKind) IsValid() bool {
	switch k {
	case IndexHNSW, IndexInt8HNSW, IndexInt4HNSW, IndexBBQHNSW, IndexFlat, IndexInt8Flat, IndexBBQFlat:
		return true
	}
	return false
}

// IsQuantized reports whether the index kind compresses stored vectors.
func (k IndexKind) IsQuantized() bool {
	switch k {
	case IndexInt8HNSW, IndexInt4HNSW, IndexBBQHNSW, IndexInt8Flat, IndexBBQFlat:
		return true
	}
	return false
}

// Defaults applied when a vector property leaves similarity or index kind unset.
const (
	DefaultDistance  = DistanceCosine
	DefaultIndexKind = IndexInt8HNSW
)

// EmbeddingGenerator produces a dense vector from text input. Implementations
// may call out to a remote embedding service; the context carries cancellation.
type EmbeddingGenerator interface {
	Generate(ctx context.Context, input string) ([]float32, error)
}

// Embedding wraps a dense vector value. It marshals as a flat numeric array,
// so stored documents never carry the wrapper structure.
type Embedding struct {
	Values []float32
}

// NewEmbedding creates an Embedding over the given values.
func NewEmbedding(values []float32) Embedding {
	return Embedding{Values: values}
}

// MarshalJSON emits the raw numeric array form.
func (e Embedding) MarshalJSON() ([]byte, error) {
	if e.Values == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Values)
}

// UnmarshalJSON reconstructs the wrapper from a raw numeric array.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	var values []float32
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	e.Values = values
	return nil
}
