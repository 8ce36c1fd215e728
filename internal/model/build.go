package model

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// TagKey is the struct tag inspected by Build.
//
// Format: `vecbridge:"storage_name[,modifier[,k=v...]]"`. The storage name
// part may be empty. Modifiers: key, index, fulltext, vector. Vector
// parameters: dims, distance, kind. A tag of "-" skips the field.
//
// Storage-name precedence: vecbridge tag, then json tag, then the default
// naming policy applied to the field name.
const TagKey = "vecbridge"

var (
	float32SliceType = reflect.TypeOf([]float32(nil))
	embeddingType    = reflect.TypeOf(Embedding{})
	timeType         = reflect.TypeOf(time.Time{})
	uuidType         = reflect.TypeOf(uuid.UUID{})
)

// BuildOptions carries per-collection build inputs that struct tags cannot
// express, such as embedding generator instances.
type BuildOptions struct {
	// Generators attaches an embedding generator to the named vector property.
	Generators map[string]EmbeddingGenerator
	// DefaultGenerator applies to text-typed vector properties without an
	// explicit generator.
	DefaultGenerator EmbeddingGenerator
}

// Build inspects a record struct type and produces its CollectionModel.
// Exactly one field must carry the key modifier; untagged exported fields
// become stored-but-unindexed data properties.
//
// Build is a pure function of its inputs: no I/O, no side effects.
func Build(t reflect.Type, opts BuildOptions) (*CollectionModel, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &vserr.SchemaError{Reason: "record type " + t.String() + " is not a struct"}
	}

	m := &CollectionModel{}
	keyCount := 0

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, skip := parseTag(f)
		if skip {
			continue
		}

		switch {
		case tag.key:
			keyCount++
			if keyCount > 1 {
				return nil, &vserr.SchemaError{
					Property: f.Name,
					Reason:   "more than one key property (already have " + m.key.name + ")",
				}
			}
			kt, ok := keyTypeOf(f.Type)
			if !ok {
				return nil, &vserr.UnsupportedTypeError{
					Property:  f.Name,
					Type:      f.Type.String(),
					Supported: supportedKeyTypes,
				}
			}
			m.key = KeyProperty{name: f.Name, storageName: tag.storageName, typ: kt}

		case tag.vector || isVectorType(f.Type):
			p, err := buildVectorProperty(f, tag, opts)
			if err != nil {
				return nil, err
			}
			m.vectors = append(m.vectors, p)

		default:
			dt, isArray, ok := dataTypeOf(f.Type)
			if !ok {
				return nil, &vserr.UnsupportedTypeError{Property: f.Name, Type: f.Type.String()}
			}
			m.data = append(m.data, DataProperty{
				name:            f.Name,
				storageName:     tag.storageName,
				typ:             dt,
				isArray:         isArray,
				indexed:         tag.index && !tag.fulltext,
				fullTextIndexed: tag.fulltext,
			})
		}
	}

	if keyCount == 0 {
		return nil, &vserr.SchemaError{Reason: "record type " + t.String() + " has no key property"}
	}
	if err := m.finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func buildVectorProperty(f reflect.StructField, tag fieldTag, opts BuildOptions) (VectorProperty, error) {
	p := VectorProperty{
		name:        f.Name,
		storageName: tag.storageName,
		dimensions:  tag.dims,
		distance:    tag.distance,
		indexKind:   tag.kind,
		generator:   opts.Generators[f.Name],
	}

	ft := f.Type
	if ft.Kind() == reflect.Pointer {
		p.nullable = true
		ft = ft.Elem()
	}

	switch {
	case ft == float32SliceType:
		p.valueKind = VectorSlice
	case ft == embeddingType:
		p.valueKind = VectorWrapper
	case ft.Kind() == reflect.String:
		p.valueKind = VectorText
		if p.generator == nil {
			p.generator = opts.DefaultGenerator
		}
		if p.generator == nil {
			return VectorProperty{}, &vserr.UnsupportedTypeError{
				Property:  f.Name,
				Type:      f.Type.String(),
				Supported: []string{"[]float32", "Embedding", "string (with an embedding generator)"},
			}
		}
	default:
		return VectorProperty{}, &vserr.UnsupportedTypeError{
			Property:  f.Name,
			Type:      f.Type.String(),
			Supported: []string{"[]float32", "Embedding", "string (with an embedding generator)"},
		}
	}

	if err := normalizeVector(&p); err != nil {
		return VectorProperty{}, err
	}
	return p, nil
}

type fieldTag struct {
	storageName string
	key         bool
	index       bool
	fulltext    bool
	vector      bool
	dims        int
	distance    DistanceFunction
	kind        IndexKind
}

func parseTag(f reflect.StructField) (fieldTag, bool) {
	raw := f.Tag.Get(TagKey)
	if raw == "-" {
		return fieldTag{}, true
	}

	var tag fieldTag
	parts := strings.Split(raw, ",")
	tag.storageName = parts[0]

	for _, part := range parts[1:] {
		switch {
		case part == "key":
			tag.key = true
		case part == "index":
			tag.index = true
		case part == "fulltext":
			tag.fulltext = true
		case part == "vector":
			tag.vector = true
		case strings.HasPrefix(part, "dims="):
			tag.dims, _ = strconv.Atoi(strings.TrimPrefix(part, "dims="))
		case strings.HasPrefix(part, "distance="):
			tag.distance = DistanceFunction(strings.TrimPrefix(part, "distance="))
		case strings.HasPrefix(part, "kind="):
			tag.kind = IndexKind(strings.TrimPrefix(part, "kind="))
		}
	}

	if tag.storageName == "" {
		if jsonName := jsonTagName(f); jsonName != "" {
			tag.storageName = jsonName
		} else {
			tag.storageName = DefaultStorageName(f.Name)
		}
	}
	return tag, false
}

func jsonTagName(f reflect.StructField) string {
	jt := f.Tag.Get("json")
	if jt == "" || jt == "-" {
		return ""
	}
	name, _, _ := strings.Cut(jt, ",")
	return name
}

func keyTypeOf(t reflect.Type) (Type, bool) {
	if t == uuidType {
		return TypeUUID, true
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString, true
	case reflect.Int64:
		return TypeInt64, true
	default:
		return "", false
	}
}

func isVectorType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == float32SliceType || t == embeddingType
}

func dataTypeOf(t reflect.Type) (Type, bool, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice {
		et, _, ok := dataTypeOf(t.Elem())
		return et, true, ok
	}
	if t == timeType {
		return TypeDate, false, true
	}
	if t == uuidType {
		return TypeUUID, false, true
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString, false, true
	case reflect.Bool:
		return TypeBool, false, true
	case reflect.Int8:
		return TypeInt8, false, true
	case reflect.Int16:
		return TypeInt16, false, true
	case reflect.Int32:
		return TypeInt32, false, true
	case reflect.Int, reflect.Int64:
		return TypeInt64, false, true
	case reflect.Uint64:
		return TypeUint64, false, true
	case reflect.Float32:
		return TypeFloat32, false, true
	case reflect.Float64:
		return TypeFloat64, false, true
	default:
		return "", false, false
	}
}
