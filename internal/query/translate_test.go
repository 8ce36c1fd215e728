package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
	"github.com/kailas-cloud/vecbridge/pkg/filter"
)

func testModel(t *testing.T) *model.CollectionModel {
	t.Helper()
	m, err := model.BuildDynamic(model.Definition{
		Key: model.KeyDefinition{Name: "HotelId", Type: model.TypeString},
		Data: []model.DataDefinition{
			{Name: "HotelName", Type: model.TypeString, Indexed: true},
			{Name: "Description", Type: model.TypeString, FullTextIndexed: true},
			{Name: "Rating", Type: model.TypeFloat64, Indexed: true},
			{Name: "Rooms", Type: model.TypeInt32, Indexed: true},
			{Name: "Tags", Type: model.TypeString, IsArray: true, Indexed: true},
			{Name: "Active", Type: model.TypeBool, Indexed: true},
			{Name: "OpenedAt", Type: model.TypeDate, Indexed: true},
		},
		Vectors: []model.VectorDefinition{
			{Name: "DescriptionEmbedding", Dimensions: 3},
		},
	}, nil)
	if err != nil {
		t.Fatalf("BuildDynamic: %v", err)
	}
	return m
}

func mustTranslate(t *testing.T, expr filter.Expr) engine.Query {
	t.Helper()
	q, err := Translate(expr, testModel(t))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	return q
}

func TestTranslateNil(t *testing.T) {
	q, err := Translate(nil, testModel(t))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if q != nil {
		t.Fatalf("expected nil query, got %#v", q)
	}
}

func TestTranslateEquality(t *testing.T) {
	q := mustTranslate(t, filter.Eq("HotelName", "Grand Budapest"))
	want := &engine.Term{Field: "hotel_name", Value: "Grand Budapest"}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateEqualityNull(t *testing.T) {
	q := mustTranslate(t, filter.Eq("HotelName", nil))
	want := &engine.Bool{MustNot: []engine.Query{&engine.Exists{Field: "hotel_name"}}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateInequalityNull(t *testing.T) {
	q := mustTranslate(t, filter.Ne("HotelName", nil))
	want := &engine.Exists{Field: "hotel_name"}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateInequality(t *testing.T) {
	q := mustTranslate(t, filter.Ne("Rooms", 12))
	want := &engine.Bool{MustNot: []engine.Query{
		&engine.Term{Field: "rooms", Value: int64(12)},
	}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateRanges(t *testing.T) {
	cases := []struct {
		expr filter.Expr
		want engine.Query
	}{
		{filter.Gt("Rating", 4.0), &engine.Range{Field: "rating", GT: 4.0}},
		{filter.Gte("Rating", 4.0), &engine.Range{Field: "rating", GTE: 4.0}},
		{filter.Lt("Rating", 4.0), &engine.Range{Field: "rating", LT: 4.0}},
		{filter.Lte("Rating", 4.0), &engine.Range{Field: "rating", LTE: 4.0}},
	}
	for _, c := range cases {
		q := mustTranslate(t, c.expr)
		if !reflect.DeepEqual(q, c.want) {
			t.Fatalf("got %#v, want %#v", q, c.want)
		}
	}
}

func TestTranslateRangeNullRejected(t *testing.T) {
	_, err := Translate(filter.Gt("Rating", nil), testModel(t))
	var ue *vserr.UnsupportedExpressionError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedExpressionError, got %v", err)
	}
}

func TestTranslateDateRange(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	q := mustTranslate(t, filter.Gte("OpenedAt", at))
	want := &engine.Range{Field: "opened_at", GTE: at}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateConjunction(t *testing.T) {
	q := mustTranslate(t, filter.And(
		filter.Eq("Active", true),
		filter.Gt("Rating", 3.5),
	))
	want := &engine.Bool{Must: []engine.Query{
		&engine.Term{Field: "active", Value: true},
		&engine.Range{Field: "rating", GT: 3.5},
	}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateDisjunction(t *testing.T) {
	q := mustTranslate(t, filter.Or(
		filter.Eq("Rooms", 1),
		filter.Eq("Rooms", 2),
	))
	want := &engine.Bool{Should: []engine.Query{
		&engine.Term{Field: "rooms", Value: int64(1)},
		&engine.Term{Field: "rooms", Value: int64(2)},
	}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateNegation(t *testing.T) {
	q := mustTranslate(t, filter.Not(filter.Eq("Active", true)))
	want := &engine.Bool{MustNot: []engine.Query{
		&engine.Term{Field: "active", Value: true},
	}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateContainsOnArray(t *testing.T) {
	q := mustTranslate(t, filter.Has("Tags", "beach"))
	want := &engine.Terms{Field: "tags", Values: []any{"beach"}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateContainsOnScalarRejected(t *testing.T) {
	_, err := Translate(filter.Has("HotelName", "x"), testModel(t))
	var ue *vserr.UnsupportedExpressionError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedExpressionError, got %v", err)
	}
}

func TestTranslateIn(t *testing.T) {
	q := mustTranslate(t, filter.AnyOf("HotelName", "a", "b"))
	want := &engine.Terms{Field: "hotel_name", Values: []any{"a", "b"}}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateInEmptyRejected(t *testing.T) {
	_, err := Translate(filter.AnyOf("HotelName"), testModel(t))
	var ue *vserr.UnsupportedExpressionError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedExpressionError, got %v", err)
	}
}

func TestTranslateBareBooleanProperty(t *testing.T) {
	q := mustTranslate(t, filter.IsTrue("Active"))
	want := &engine.Term{Field: "active", Value: true}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateBarePropertyNotBool(t *testing.T) {
	_, err := Translate(filter.IsTrue("Rating"), testModel(t))
	var tm *vserr.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestTranslateUnknownProperty(t *testing.T) {
	_, err := Translate(filter.Eq("Nope", 1), testModel(t))
	var se *vserr.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Nope") {
		t.Fatalf("error should name the property: %v", err)
	}
}

func TestTranslateKeyPropertyRejected(t *testing.T) {
	_, err := Translate(filter.Eq("HotelId", "h1"), testModel(t))
	var se *vserr.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestTranslateVectorPropertyRejected(t *testing.T) {
	_, err := Translate(filter.Eq("DescriptionEmbedding", "x"), testModel(t))
	var se *vserr.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestTranslateTypeMismatch(t *testing.T) {
	_, err := Translate(filter.Eq("Rooms", "twelve"), testModel(t))
	var tm *vserr.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestTranslateStorageNameResolution(t *testing.T) {
	// Filters may reference either the model name or the storage name.
	q := mustTranslate(t, filter.Eq("hotel_name", "x"))
	want := &engine.Term{Field: "hotel_name", Value: "x"}
	if !reflect.DeepEqual(q, want) {
		t.Fatalf("got %#v, want %#v", q, want)
	}
}

func TestTranslateDeterministic(t *testing.T) {
	expr := filter.And(
		filter.Or(filter.Eq("Rooms", 1), filter.Gt("Rating", 4.0)),
		filter.Has("Tags", "spa"),
	)
	first := mustTranslate(t, expr)
	for i := 0; i < 5; i++ {
		again := mustTranslate(t, expr)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("translation is not deterministic: %#v vs %#v", first, again)
		}
	}
}
