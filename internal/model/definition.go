package model

import (
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// Definition is an explicit record description, used when the schema is only
// known at runtime (dynamic records) or to describe a record type without
// struct tags.
type Definition struct {
	Key     KeyDefinition
	Data    []DataDefinition
	Vectors []VectorDefinition
}

// KeyDefinition describes the key property.
type KeyDefinition struct {
	Name        string
	StorageName string // optional override; default naming policy applies when empty
	Type        Type
}

// DataDefinition describes a data property.
type DataDefinition struct {
	Name            string
	StorageName     string
	Type            Type
	IsArray         bool
	Indexed         bool
	FullTextIndexed bool
}

// VectorDefinition describes a vector property.
type VectorDefinition struct {
	Name        string
	StorageName string
	Dimensions  int
	Distance    DistanceFunction
	IndexKind   IndexKind
	// Type is the application-side value type: TypeFloat32 (default) for raw
	// vectors, TypeString for text embedded at write time by the generator.
	Type Type
	// Generator, when set, embeds non-vector (text) values at write time.
	Generator EmbeddingGenerator
}

// BuildDynamic builds a CollectionModel for dynamic (map) records from an
// explicit definition. Storage names fall back to the default naming policy;
// there is no reflectable member to carry an override, so the definition is
// the only source. defaultGenerator applies to vector properties without one.
//
// BuildDynamic is a pure function of its inputs: no I/O, no side effects.
func BuildDynamic(def Definition, defaultGenerator EmbeddingGenerator) (*CollectionModel, error) {
	m := &CollectionModel{dynamic: true}

	if def.Key.Name == "" {
		return nil, &vserr.SchemaError{Reason: "definition has no key property"}
	}
	if !keyTypeSupported(def.Key.Type) {
		return nil, &vserr.UnsupportedTypeError{
			Property:  def.Key.Name,
			Type:      string(def.Key.Type),
			Supported: supportedKeyTypes,
		}
	}
	m.key = KeyProperty{
		name:        def.Key.Name,
		storageName: resolveStorageName(def.Key.StorageName, def.Key.Name),
		typ:         def.Key.Type,
	}

	for _, d := range def.Data {
		if d.Name == "" {
			return nil, &vserr.SchemaError{Reason: "data property has no name"}
		}
		if !dataTypeSupported(d.Type) {
			return nil, &vserr.UnsupportedTypeError{Property: d.Name, Type: string(d.Type)}
		}
		m.data = append(m.data, DataProperty{
			name:            d.Name,
			storageName:     resolveStorageName(d.StorageName, d.Name),
			typ:             d.Type,
			isArray:         d.IsArray,
			indexed:         d.Indexed && !d.FullTextIndexed,
			fullTextIndexed: d.FullTextIndexed,
		})
	}

	for _, v := range def.Vectors {
		if v.Name == "" {
			return nil, &vserr.SchemaError{Reason: "vector property has no name"}
		}
		p := VectorProperty{
			name:        v.Name,
			storageName: resolveStorageName(v.StorageName, v.Name),
			dimensions:  v.Dimensions,
			distance:    v.Distance,
			indexKind:   v.IndexKind,
			valueKind:   VectorSlice,
			generator:   v.Generator,
		}
		switch v.Type {
		case "", TypeFloat32:
			// Raw vector input. An attached generator embeds text query inputs
			// at search time, so it is allowed but not required.
		case TypeString:
			if p.generator == nil {
				p.generator = defaultGenerator
			}
			if p.generator == nil {
				return nil, &vserr.UnsupportedTypeError{
					Property:  v.Name,
					Type:      string(TypeString),
					Supported: []string{"float32 vector (or attach an embedding generator)"},
				}
			}
			p.valueKind = VectorText
		default:
			return nil, &vserr.UnsupportedTypeError{Property: v.Name, Type: string(v.Type)}
		}
		if err := normalizeVector(&p); err != nil {
			return nil, err
		}
		m.vectors = append(m.vectors, p)
	}

	if err := m.finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func resolveStorageName(override, name string) string {
	if override != "" {
		return override
	}
	return DefaultStorageName(name)
}

func dataTypeSupported(t Type) bool {
	switch t {
	case TypeString, TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint64, TypeFloat32, TypeFloat64, TypeDate, TypeUUID:
		return true
	}
	return false
}
