// Package model builds and holds the CollectionModel: the validated schema
// descriptor for one collection. A model is built once per collection handle,
// from either a concrete record type or an explicit definition, and is
// immutable afterwards, safe for concurrent use by in-flight operations.
package model

import (
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// VectorValueKind describes how a vector property's application-side value is
// represented.
type VectorValueKind int

const (
	// VectorSlice is a raw []float32 value.
	VectorSlice VectorValueKind = iota
	// VectorWrapper is an Embedding wrapper value.
	VectorWrapper
	// VectorText is a non-vector input (string) embedded at write time by the
	// property's generator.
	VectorText
)

// KeyProperty describes the single externally-managed document identifier.
type KeyProperty struct {
	name        string
	storageName string
	typ         Type
}

// Name returns the application-facing property name.
func (p KeyProperty) Name() string { return p.name }

// StorageName returns the field name used inside the backing store.
func (p KeyProperty) StorageName() string { return p.storageName }

// Type returns the key's semantic type.
func (p KeyProperty) Type() Type { return p.typ }

// DataProperty describes a scalar or array field.
type DataProperty struct {
	name            string
	storageName     string
	typ             Type
	isArray         bool
	indexed         bool
	fullTextIndexed bool
}

// Name returns the application-facing property name.
func (p DataProperty) Name() string { return p.name }

// StorageName returns the field name used inside the backing store.
func (p DataProperty) StorageName() string { return p.storageName }

// Type returns the element semantic type.
func (p DataProperty) Type() Type { return p.typ }

// IsArray reports whether the property holds multiple values.
func (p DataProperty) IsArray() bool { return p.isArray }

// IsIndexed reports whether the property is exact-match filterable.
func (p DataProperty) IsIndexed() bool { return p.indexed }

// IsFullTextIndexed reports whether the property is tokenized searchable.
// Full-text takes precedence over exact-match indexing when both are requested.
func (p DataProperty) IsFullTextIndexed() bool { return p.fullTextIndexed }

// VectorProperty describes an embedding field.
type VectorProperty struct {
	name        string
	storageName string
	dimensions  int
	distance    DistanceFunction
	indexKind   IndexKind
	valueKind   VectorValueKind
	nullable    bool
	generator   EmbeddingGenerator
}

// Name returns the application-facing property name.
func (p VectorProperty) Name() string { return p.name }

// StorageName returns the field name used inside the backing store.
func (p VectorProperty) StorageName() string { return p.storageName }

// Dimensions returns the vector dimensionality.
func (p VectorProperty) Dimensions() int { return p.dimensions }

// Distance returns the similarity function.
func (p VectorProperty) Distance() DistanceFunction { return p.distance }

// IndexKind returns the index algorithm and quantization.
func (p VectorProperty) IndexKind() IndexKind { return p.indexKind }

// ValueKind returns the application-side value representation.
func (p VectorProperty) ValueKind() VectorValueKind { return p.valueKind }

// IsNullable reports whether the application-side value is pointer-typed.
func (p VectorProperty) IsNullable() bool { return p.nullable }

// Generator returns the attached embedding generator, or nil.
func (p VectorProperty) Generator() EmbeddingGenerator { return p.generator }

// HasGenerator reports whether an embedding generator is attached, for
// embedding non-vector search inputs.
func (p VectorProperty) HasGenerator() bool { return p.generator != nil }

// IsGenerated reports whether the stored embedding is generated at write time
// from a non-vector input. Such vectors cannot be read back into the original
// input type.
func (p VectorProperty) IsGenerated() bool { return p.valueKind == VectorText }

// CollectionModel is the built, validated schema descriptor for a collection.
type CollectionModel struct {
	key     KeyProperty
	data    []DataProperty
	vectors []VectorProperty
	dynamic bool
}

// Key returns the key property.
func (m *CollectionModel) Key() KeyProperty { return m.key }

// Data returns the data properties in declaration order.
func (m *CollectionModel) Data() []DataProperty { return m.data }

// Vectors returns the vector properties in declaration order.
func (m *CollectionModel) Vectors() []VectorProperty { return m.vectors }

// IsDynamic reports whether records are string-keyed maps rather than structs.
func (m *CollectionModel) IsDynamic() bool { return m.dynamic }

// DataByName resolves a data property by model name or storage name.
func (m *CollectionModel) DataByName(name string) (DataProperty, bool) {
	for _, p := range m.data {
		if p.name == name || p.storageName == name {
			return p, true
		}
	}
	return DataProperty{}, false
}

// VectorByName resolves a vector property by model name or storage name.
func (m *CollectionModel) VectorByName(name string) (VectorProperty, bool) {
	for _, p := range m.vectors {
		if p.name == name || p.storageName == name {
			return p, true
		}
	}
	return VectorProperty{}, false
}

// HasGeneratedVectors reports whether any vector property is generated at
// write time. Such vectors cannot be returned to the caller because the
// original non-vector input is not reconstructible.
func (m *CollectionModel) HasGeneratedVectors() bool {
	for _, p := range m.vectors {
		if p.IsGenerated() {
			return true
		}
	}
	return false
}

// finalize validates cross-property invariants shared by both build paths.
func (m *CollectionModel) finalize() error {
	seen := map[string]string{m.key.storageName: m.key.name}
	for _, p := range m.data {
		if other, ok := seen[p.storageName]; ok {
			return &vserr.SchemaError{
				Property: p.name,
				Reason:   "storage name " + p.storageName + " already used by property " + other,
			}
		}
		seen[p.storageName] = p.name
	}
	for _, p := range m.vectors {
		if other, ok := seen[p.storageName]; ok {
			return &vserr.SchemaError{
				Property: p.name,
				Reason:   "storage name " + p.storageName + " already used by property " + other,
			}
		}
		seen[p.storageName] = p.name
	}
	return nil
}

var supportedKeyTypes = []string{"string", "int64", "uuid.UUID"}

func keyTypeSupported(t Type) bool {
	return t == TypeString || t == TypeInt64 || t == TypeUUID
}

// normalizeVector applies the default distance and index kind policy and
// validates the configured values. Defaults are independent: an explicit
// distance does not change the default index kind and vice versa.
func normalizeVector(p *VectorProperty) error {
	if p.dimensions <= 0 {
		return &vserr.SchemaError{Property: p.name, Reason: "vector property requires a positive dimension"}
	}
	if p.distance == "" {
		p.distance = DefaultDistance
	}
	if p.indexKind == "" {
		p.indexKind = DefaultIndexKind
	}
	if !p.distance.IsValid() {
		return &vserr.UnsupportedConfigurationError{
			Property: p.name, Setting: "distance", Value: string(p.distance),
		}
	}
	if !p.indexKind.IsValid() {
		return &vserr.UnsupportedConfigurationError{
			Property: p.name, Setting: "index_kind", Value: string(p.indexKind),
		}
	}
	return nil
}
