// Package query compiles filter expression trees into the engine's native
// query representation. Translation is a pure recursive transform: it binds
// every leaf to a collection-model property, checks value types against the
// property's declared type, and rejects anything it does not recognize.
// Unresolvable property names are a hard error, never a silent no-match.
package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
	"github.com/kailas-cloud/vecbridge/pkg/filter"
)

// Translate compiles expr against the model. A nil expr returns a nil query,
// meaning match-everything.
func Translate(expr filter.Expr, m *model.CollectionModel) (engine.Query, error) {
	if expr == nil {
		return nil, nil
	}
	return translate(expr, m)
}

func translate(expr filter.Expr, m *model.CollectionModel) (engine.Query, error) {
	switch e := expr.(type) {
	case *filter.Comparison:
		return translateComparison(e, m)

	case *filter.Conjunction:
		ops, err := translateAll(e.Operands, m)
		if err != nil {
			return nil, err
		}
		return &engine.Bool{Must: ops}, nil

	case *filter.Disjunction:
		ops, err := translateAll(e.Operands, m)
		if err != nil {
			return nil, err
		}
		return &engine.Bool{Should: ops}, nil

	case *filter.Negation:
		op, err := translate(e.Operand, m)
		if err != nil {
			return nil, err
		}
		return &engine.Bool{MustNot: []engine.Query{op}}, nil

	case *filter.Contains:
		return translateContains(e, m)

	case *filter.In:
		return translateIn(e, m)

	case *filter.Property:
		p, err := resolveData(e.Field, m)
		if err != nil {
			return nil, err
		}
		if p.Type() != model.TypeBool || p.IsArray() {
			return nil, &vserr.TypeMismatchError{
				Property: e.Field,
				Expected: string(model.TypeBool),
				Actual:   propertyTypeName(p),
			}
		}
		// A bare boolean property reads as property == true.
		return &engine.Term{Field: p.StorageName(), Value: true}, nil

	default:
		return nil, &vserr.UnsupportedExpressionError{Kind: fmt.Sprintf("%T", expr)}
	}
}

func translateAll(exprs []filter.Expr, m *model.CollectionModel) ([]engine.Query, error) {
	if len(exprs) == 0 {
		return nil, &vserr.UnsupportedExpressionError{
			Kind: "logical group", Reason: "no operands",
		}
	}
	out := make([]engine.Query, len(exprs))
	for i, e := range exprs {
		q, err := translate(e, m)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func translateComparison(e *filter.Comparison, m *model.CollectionModel) (engine.Query, error) {
	p, err := resolveData(e.Field, m)
	if err != nil {
		return nil, err
	}
	field := p.StorageName()

	if e.Value == nil {
		switch e.Op {
		case filter.OpEq:
			// Equality with null is an absence test.
			return &engine.Bool{MustNot: []engine.Query{&engine.Exists{Field: field}}}, nil
		case filter.OpNe:
			return &engine.Exists{Field: field}, nil
		default:
			return nil, &vserr.UnsupportedExpressionError{
				Kind: "comparison", Reason: string(e.Op) + " against null on property " + e.Field,
			}
		}
	}

	value, err := normalizeValue(p, e.Value)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case filter.OpEq:
		return &engine.Term{Field: field, Value: value}, nil
	case filter.OpNe:
		return &engine.Bool{MustNot: []engine.Query{&engine.Term{Field: field, Value: value}}}, nil
	case filter.OpGt:
		return &engine.Range{Field: field, GT: value}, nil
	case filter.OpGte:
		return &engine.Range{Field: field, GTE: value}, nil
	case filter.OpLt:
		return &engine.Range{Field: field, LT: value}, nil
	case filter.OpLte:
		return &engine.Range{Field: field, LTE: value}, nil
	default:
		return nil, &vserr.UnsupportedExpressionError{Kind: "comparison operator " + string(e.Op)}
	}
}

// translateContains handles the array-property-contains-literal shape.
func translateContains(e *filter.Contains, m *model.CollectionModel) (engine.Query, error) {
	p, err := resolveData(e.Field, m)
	if err != nil {
		return nil, err
	}
	if !p.IsArray() {
		return nil, &vserr.UnsupportedExpressionError{
			Kind: "contains", Reason: "property " + e.Field + " is not array-valued",
		}
	}
	if e.Value == nil {
		return nil, &vserr.UnsupportedExpressionError{Kind: "contains", Reason: "null value"}
	}
	value, err := normalizeValue(p, e.Value)
	if err != nil {
		return nil, err
	}
	return &engine.Terms{Field: p.StorageName(), Values: []any{value}}, nil
}

// translateIn handles the literal-set-contains-property shape. Only constant
// values are supported in the set.
func translateIn(e *filter.In, m *model.CollectionModel) (engine.Query, error) {
	p, err := resolveData(e.Field, m)
	if err != nil {
		return nil, err
	}
	if p.IsArray() {
		return nil, &vserr.UnsupportedExpressionError{
			Kind: "in", Reason: "property " + e.Field + " is array-valued",
		}
	}
	if len(e.Values) == 0 {
		return nil, &vserr.UnsupportedExpressionError{Kind: "in", Reason: "empty value set"}
	}
	values := make([]any, len(e.Values))
	for i, v := range e.Values {
		if v == nil {
			return nil, &vserr.UnsupportedExpressionError{Kind: "in", Reason: "null in value set"}
		}
		nv, err := normalizeValue(p, v)
		if err != nil {
			return nil, err
		}
		values[i] = nv
	}
	return &engine.Terms{Field: p.StorageName(), Values: values}, nil
}

func resolveData(name string, m *model.CollectionModel) (model.DataProperty, error) {
	if p, ok := m.DataByName(name); ok {
		return p, nil
	}
	if name == m.Key().Name() || name == m.Key().StorageName() {
		return model.DataProperty{}, &vserr.SchemaError{
			Property: name, Reason: "the key property is not filterable",
		}
	}
	if _, ok := m.VectorByName(name); ok {
		return model.DataProperty{}, &vserr.SchemaError{
			Property: name, Reason: "vector properties are not filterable",
		}
	}
	return model.DataProperty{}, &vserr.SchemaError{Property: name, Reason: "unknown property"}
}

// normalizeValue checks the constant against the property's declared element
// type and converts it to a canonical representation.
func normalizeValue(p model.DataProperty, v any) (any, error) {
	switch p.Type() {
	case model.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case model.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case model.TypeInt8, model.TypeInt16, model.TypeInt32, model.TypeInt64:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case model.TypeUint64:
		switch n := v.(type) {
		case uint64:
			return n, nil
		case uint:
			return uint64(n), nil
		}
		if n, ok := toInt64(v); ok && n >= 0 {
			return uint64(n), nil
		}
	case model.TypeFloat32, model.TypeFloat64:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	case model.TypeDate:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case model.TypeUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u.String(), nil
		case string:
			return u, nil
		}
	}
	return nil, &vserr.TypeMismatchError{
		Property: p.Name(),
		Expected: propertyTypeName(p),
		Actual:   fmt.Sprintf("%T", v),
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func propertyTypeName(p model.DataProperty) string {
	if p.IsArray() {
		return "[]" + string(p.Type())
	}
	return string(p.Type())
}
