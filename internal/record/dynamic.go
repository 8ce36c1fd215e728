package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// Dynamic maps schemaless records: string-keyed maps indexed by model
// property name. Vector arrays are rebuilt element by element from the
// semi-structured form rather than through a typed deserializer.
type Dynamic struct {
	model *model.CollectionModel
}

// NewDynamic builds a dynamic mapper for the given model.
func NewDynamic(m *model.CollectionModel) *Dynamic {
	return &Dynamic{model: m}
}

// ToStorage implements Mapper. rec must be a map[string]any.
func (dm *Dynamic) ToStorage(rec any, generated [][]float32) (engine.Document, error) {
	fields, err := dm.fields(rec)
	if err != nil {
		return engine.Document{}, err
	}

	keyValue, ok := fields[dm.model.Key().Name()]
	if !ok {
		return engine.Document{}, &vserr.SchemaError{
			Property: dm.model.Key().Name(),
			Reason:   "record has no key value",
		}
	}
	id, err := model.EncodeKey(keyValue)
	if err != nil {
		return engine.Document{}, err
	}

	b := make(body, len(fields))
	for _, p := range dm.model.Data() {
		value, ok := fields[p.Name()]
		if !ok {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return engine.Document{}, fmt.Errorf("serialize property %s: %w", p.Name(), err)
		}
		b[p.StorageName()] = raw
	}

	for i, p := range dm.model.Vectors() {
		if value, ok := fields[p.Name()]; ok {
			raw, err := marshalVectorValue(p, value)
			if err != nil {
				return engine.Document{}, err
			}
			b[p.StorageName()] = raw
		}
		if i < len(generated) && generated[i] != nil {
			raw, err := json.Marshal(generated[i])
			if err != nil {
				return engine.Document{}, fmt.Errorf("serialize embedding for %s: %w", p.Name(), err)
			}
			b[p.StorageName()] = raw
		}
	}

	rawBody, err := b.marshal()
	if err != nil {
		return engine.Document{}, err
	}
	return engine.Document{ID: id, Body: rawBody}, nil
}

// FromStorage implements Mapper. Returns a map[string]any keyed by model
// property names.
func (dm *Dynamic) FromStorage(doc engine.Document, includeVectors bool) (any, error) {
	b, err := parseBody(doc)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(b)+1)

	key, err := model.DecodeKey(doc.ID, dm.model.Key().Type())
	if err != nil {
		return nil, err
	}
	out[dm.model.Key().Name()] = key

	for _, p := range dm.model.Data() {
		raw, ok := b[p.StorageName()]
		if !ok || isNull(raw) {
			continue
		}
		value, err := decodeDataValue(p, raw)
		if err != nil {
			return nil, err
		}
		out[p.Name()] = value
	}

	for _, p := range dm.model.Vectors() {
		if !includeVectors || p.IsGenerated() {
			continue
		}
		raw, ok := b[p.StorageName()]
		if !ok || isNull(raw) {
			continue
		}
		vec, err := decodeVector(p.Name(), raw)
		if err != nil {
			return nil, err
		}
		out[p.Name()] = vec
	}

	return out, nil
}

// KeyOf implements Mapper.
func (dm *Dynamic) KeyOf(rec any) (any, error) {
	fields, err := dm.fields(rec)
	if err != nil {
		return nil, err
	}
	key, ok := fields[dm.model.Key().Name()]
	if !ok {
		return nil, &vserr.SchemaError{Property: dm.model.Key().Name(), Reason: "record has no key value"}
	}
	return key, nil
}

// VectorInput returns the raw value of the i-th vector property.
func (dm *Dynamic) VectorInput(rec any, i int) (any, error) {
	fields, err := dm.fields(rec)
	if err != nil {
		return nil, err
	}
	return fields[dm.model.Vectors()[i].Name()], nil
}

func (dm *Dynamic) fields(rec any) (map[string]any, error) {
	fields, ok := rec.(map[string]any)
	if !ok {
		return nil, &vserr.SchemaError{
			Reason: fmt.Sprintf("dynamic record must be map[string]any, got %T", rec),
		}
	}
	return fields, nil
}

// marshalVectorValue normalizes the array-like vector variants a dynamic
// record may carry into the raw numeric array form.
func marshalVectorValue(p model.VectorProperty, value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case []float32, string:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serialize property %s: %w", p.Name(), err)
		}
		return raw, nil
	case model.Embedding:
		return json.Marshal(v)
	case []float64:
		vec := make([]float32, len(v))
		for i, f := range v {
			vec[i] = float32(f)
		}
		return json.Marshal(vec)
	case []any:
		vec := make([]float32, len(v))
		for i, e := range v {
			f, ok := e.(float64)
			if !ok {
				return nil, &vserr.UnsupportedTypeError{
					Property: p.Name(), Type: fmt.Sprintf("[]any with %T element", e),
				}
			}
			vec[i] = float32(f)
		}
		return json.Marshal(vec)
	default:
		return nil, &vserr.UnsupportedTypeError{
			Property:  p.Name(),
			Type:      fmt.Sprintf("%T", value),
			Supported: []string{"[]float32", "[]float64", "Embedding", "string"},
		}
	}
}

// decodeVector rebuilds a []float32 element by element from the JSON array.
func decodeVector(name string, raw json.RawMessage) ([]float32, error) {
	var elems []json.Number
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("deserialize vector %s: %w", name, err)
	}
	vec := make([]float32, len(elems))
	for i, n := range elems {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("deserialize vector %s element %d: %w", name, i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// decodeDataValue deserializes a data field into the canonical Go type for
// its semantic type.
func decodeDataValue(p model.DataProperty, raw json.RawMessage) (any, error) {
	if p.IsArray() {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, fmt.Errorf("deserialize property %s: %w", p.Name(), err)
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := decodeScalar(p.Name(), p.Type(), e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return decodeScalar(p.Name(), p.Type(), raw)
}

func decodeScalar(name string, t model.Type, raw json.RawMessage) (any, error) {
	var (
		value any
		err   error
	)
	switch t {
	case model.TypeString:
		var v string
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeBool:
		var v bool
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeInt8:
		var v int8
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeInt16:
		var v int16
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeInt32:
		var v int32
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeInt64:
		var v int64
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeUint64:
		var v uint64
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeFloat32:
		var v float32
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeFloat64:
		var v float64
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeDate:
		var v time.Time
		err = json.Unmarshal(raw, &v)
		value = v
	case model.TypeUUID:
		var v uuid.UUID
		err = json.Unmarshal(raw, &v)
		value = v
	default:
		return nil, &vserr.UnsupportedTypeError{Property: name, Type: string(t)}
	}
	if err != nil {
		return nil, fmt.Errorf("deserialize property %s: %w", name, err)
	}
	return value, nil
}
