package engine

import (
	"errors"
	"strconv"
)

// MappingType enumerates the engine field mappings a schema can declare.
type MappingType string

// Field mapping types. Stored fields live in the document body but carry no
// index; everything else is queryable.
const (
	MappingDenseVector  MappingType = "dense_vector"
	MappingText         MappingType = "text"
	MappingKeyword      MappingType = "keyword"
	MappingBoolean      MappingType = "boolean"
	MappingByte         MappingType = "byte"
	MappingShort        MappingType = "short"
	MappingInteger      MappingType = "integer"
	MappingLong         MappingType = "long"
	MappingUnsignedLong MappingType = "unsigned_long"
	MappingFloat        MappingType = "float"
	MappingDouble       MappingType = "double"
	MappingDate         MappingType = "date"
	MappingStored       MappingType = "stored"
)

// FieldMapping describes one field in an index schema.
type FieldMapping struct {
	Name    string
	Type    MappingType
	IsArray bool

	// Dense vector options. Indexing is always enabled for vector fields.
	Dims       int
	Similarity string // cosine, dot_product, l2_norm, max_inner_product
	IndexKind  string // hnsw, int8_hnsw, int4_hnsw, bbq_hnsw, flat, int8_flat, bbq_flat

	// HNSW build parameters; zero means engine default.
	HNSWM              int
	HNSWEFConstruction int
}

// IndexSchema is the engine's native index-schema description.
type IndexSchema struct {
	Fields []FieldMapping
}

// Validate checks that the schema is well-formed: unique field names, and
// vector fields with dimension, similarity, and index kind all set.
func (s *IndexSchema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == MappingDenseVector {
			if f.Dims <= 0 {
				return errors.New("vector field " + f.Name + " requires positive dims")
			}
			if f.Similarity == "" {
				return errors.New("vector field " + f.Name + " requires a similarity")
			}
			if f.IndexKind == "" {
				return errors.New("vector field " + f.Name + " requires an index kind")
			}
		}
	}
	return nil
}
