package record

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// Typed maps struct records through reflection. Field offsets are resolved
// once at construction and reused for every operation.
type Typed struct {
	model      *model.CollectionModel
	structType reflect.Type
	keyIdx     int
	dataIdx    []int // aligned with model.Data()
	vectorIdx  []int // aligned with model.Vectors()
}

// NewTyped builds a typed mapper for the given struct type and model. Every
// model property must resolve to an exported struct field.
func NewTyped(t reflect.Type, m *model.CollectionModel) (*Typed, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &vserr.SchemaError{Reason: "record type " + t.String() + " is not a struct"}
	}

	tm := &Typed{model: m, structType: t, keyIdx: -1}

	fieldByName := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			fieldByName[t.Field(i).Name] = i
		}
	}

	idx, ok := fieldByName[m.Key().Name()]
	if !ok {
		return nil, &vserr.SchemaError{Property: m.Key().Name(), Reason: "no matching struct field"}
	}
	tm.keyIdx = idx

	for _, p := range m.Data() {
		idx, ok := fieldByName[p.Name()]
		if !ok {
			return nil, &vserr.SchemaError{Property: p.Name(), Reason: "no matching struct field"}
		}
		tm.dataIdx = append(tm.dataIdx, idx)
	}
	for _, p := range m.Vectors() {
		idx, ok := fieldByName[p.Name()]
		if !ok {
			return nil, &vserr.SchemaError{Property: p.Name(), Reason: "no matching struct field"}
		}
		tm.vectorIdx = append(tm.vectorIdx, idx)
	}
	return tm, nil
}

// ToStorage implements Mapper.
func (tm *Typed) ToStorage(rec any, generated [][]float32) (engine.Document, error) {
	v, err := tm.structValue(rec)
	if err != nil {
		return engine.Document{}, err
	}

	id, err := model.EncodeKey(v.Field(tm.keyIdx).Interface())
	if err != nil {
		return engine.Document{}, err
	}

	b := make(body, len(tm.dataIdx)+len(tm.vectorIdx))
	for i, p := range tm.model.Data() {
		raw, err := json.Marshal(v.Field(tm.dataIdx[i]).Interface())
		if err != nil {
			return engine.Document{}, fmt.Errorf("serialize property %s: %w", p.Name(), err)
		}
		b[p.StorageName()] = raw
	}

	for i, p := range tm.model.Vectors() {
		raw, err := json.Marshal(v.Field(tm.vectorIdx[i]).Interface())
		if err != nil {
			return engine.Document{}, fmt.Errorf("serialize property %s: %w", p.Name(), err)
		}
		b[p.StorageName()] = raw
		// Generated embeddings win over whatever serialization produced.
		if i < len(generated) && generated[i] != nil {
			raw, err = json.Marshal(generated[i])
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

// FromStorage implements Mapper. Returns a value of the mapper's struct type.
func (tm *Typed) FromStorage(doc engine.Document, includeVectors bool) (any, error) {
	b, err := parseBody(doc)
	if err != nil {
		return nil, err
	}

	out := reflect.New(tm.structType).Elem()

	key, err := model.DecodeKey(doc.ID, tm.model.Key().Type())
	if err != nil {
		return nil, err
	}
	kv := reflect.ValueOf(key)
	if kf := out.Field(tm.keyIdx); kv.Type() == kf.Type() {
		kf.Set(kv)
	} else {
		kf.Set(kv.Convert(kf.Type()))
	}

	for i, p := range tm.model.Data() {
		raw, ok := b[p.StorageName()]
		if !ok || isNull(raw) {
			continue // absent fields keep the zero value
		}
		if err := json.Unmarshal(raw, out.Field(tm.dataIdx[i]).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("deserialize property %s: %w", p.Name(), err)
		}
	}

	for i, p := range tm.model.Vectors() {
		if !includeVectors || p.IsGenerated() {
			continue
		}
		raw, ok := b[p.StorageName()]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, out.Field(tm.vectorIdx[i]).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("deserialize property %s: %w", p.Name(), err)
		}
	}

	return out.Interface(), nil
}

// KeyOf implements Mapper.
func (tm *Typed) KeyOf(rec any) (any, error) {
	v, err := tm.structValue(rec)
	if err != nil {
		return nil, err
	}
	return v.Field(tm.keyIdx).Interface(), nil
}

// VectorInput returns the raw application-side value of the i-th vector
// property, used as embedding-generator input at write time.
func (tm *Typed) VectorInput(rec any, i int) (any, error) {
	v, err := tm.structValue(rec)
	if err != nil {
		return nil, err
	}
	return v.Field(tm.vectorIdx[i]).Interface(), nil
}

func (tm *Typed) structValue(rec any) (reflect.Value, error) {
	v := reflect.ValueOf(rec)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != tm.structType {
		return reflect.Value{}, &vserr.SchemaError{
			Reason: fmt.Sprintf("record type %T does not match collection type %s", rec, tm.structType),
		}
	}
	return v, nil
}
