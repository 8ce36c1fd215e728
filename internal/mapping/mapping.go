// Package mapping turns a CollectionModel into the engine's native
// index-schema description. The translation is pure and deterministic; issuing
// the schema to the backing store is the store's own concern.
package mapping

import (
	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// Options carries engine tuning knobs that are not part of the record model.
type Options struct {
	HNSWM              int
	HNSWEFConstruction int
}

// BuildIndexSchema maps each model property onto an engine field mapping:
// vector properties become dense-vector fields (always indexed), full-text
// data properties become analyzed text fields, indexed data properties become
// type-specific exact-match fields, and everything else is stored unindexed.
// The key property is excluded: the store manages identifiers out of band.
func BuildIndexSchema(m *model.CollectionModel, opts Options) (*engine.IndexSchema, error) {
	schema := &engine.IndexSchema{}

	for _, p := range m.Vectors() {
		if err := validateVectorConfig(p); err != nil {
			return nil, err
		}
		schema.Fields = append(schema.Fields, engine.FieldMapping{
			Name:               p.StorageName(),
			Type:               engine.MappingDenseVector,
			Dims:               p.Dimensions(),
			Similarity:         string(p.Distance()),
			IndexKind:          string(p.IndexKind()),
			HNSWM:              opts.HNSWM,
			HNSWEFConstruction: opts.HNSWEFConstruction,
		})
	}

	for _, p := range m.Data() {
		schema.Fields = append(schema.Fields, engine.FieldMapping{
			Name:    p.StorageName(),
			Type:    dataMapping(p),
			IsArray: p.IsArray(),
		})
	}

	if err := schema.Validate(); err != nil {
		return nil, &vserr.SchemaError{Reason: err.Error()}
	}
	return schema, nil
}

// validateVectorConfig rejects (index kind, similarity) pairings the engine
// cannot serve. Quantized kinds assume normalized vectors, which rules out
// plain Euclidean distance.
func validateVectorConfig(p model.VectorProperty) error {
	if p.IndexKind().IsQuantized() && p.Distance() == model.DistanceL2Norm {
		return &vserr.UnsupportedConfigurationError{
			Property: p.Name(),
			Setting:  "index_kind " + string(p.IndexKind()) + " with distance",
			Value:    string(model.DistanceL2Norm),
		}
	}
	return nil
}

func dataMapping(p model.DataProperty) engine.MappingType {
	if p.IsFullTextIndexed() {
		return engine.MappingText
	}
	if !p.IsIndexed() {
		return engine.MappingStored
	}
	switch p.Type() {
	case model.TypeBool:
		return engine.MappingBoolean
	case model.TypeInt8:
		return engine.MappingByte
	case model.TypeInt16:
		return engine.MappingShort
	case model.TypeInt32:
		return engine.MappingInteger
	case model.TypeInt64:
		return engine.MappingLong
	case model.TypeUint64:
		return engine.MappingUnsignedLong
	case model.TypeFloat32:
		return engine.MappingFloat
	case model.TypeFloat64:
		return engine.MappingDouble
	case model.TypeDate:
		return engine.MappingDate
	default:
		// Strings, UUIDs, and anything unrecognized index as exact-match keywords.
		return engine.MappingKeyword
	}
}
