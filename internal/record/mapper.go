// Package record converts application records to and from the storage
// document representation. Two mapper implementations share one contract:
// typed records go through reflection, dynamic records through string-keyed
// map lookups. The variant is chosen once, at collection construction.
//
// The key travels out of band as the document identifier and never appears
// inside the body. Write-time generated embeddings override whatever the
// record serialization produced for the vector field, always in raw numeric
// array form.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

// Mapper is the bidirectional record <-> storage document contract.
type Mapper interface {
	// ToStorage serializes a record. generated holds write-time embeddings
	// aligned with the model's vector properties; nil entries keep the
	// serialized value.
	ToStorage(rec any, generated [][]float32) (engine.Document, error)
	// FromStorage deserializes a document. Vector fields are dropped when
	// includeVectors is false or the property's embedding is generated, since
	// the original input is not reconstructible. Missing body fields map to
	// the record type's zero values.
	FromStorage(doc engine.Document, includeVectors bool) (any, error)
	// KeyOf extracts the typed key from a record.
	KeyOf(rec any) (any, error)
	// VectorInput returns the raw application-side value of the i-th vector
	// property, used as embedding-generator input at write time.
	VectorInput(rec any, i int) (any, error)
}

// body is the semi-structured document form both mappers work on. Fields stay
// as raw JSON so numeric values round-trip without float coercion.
type body map[string]json.RawMessage

func parseBody(doc engine.Document) (body, error) {
	if len(doc.Body) == 0 {
		return body{}, nil
	}
	var b body
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", doc.ID, err)
	}
	return b, nil
}

func (b body) marshal() (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]json.RawMessage(b))
	if err != nil {
		return nil, fmt.Errorf("marshal document body: %w", err)
	}
	return raw, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
