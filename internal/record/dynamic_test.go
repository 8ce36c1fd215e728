package record

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

func dynamicMapper(t *testing.T) *Dynamic {
	t.Helper()
	m, err := model.BuildDynamic(model.Definition{
		Key: model.KeyDefinition{Name: "ProductId", Type: model.TypeInt64},
		Data: []model.DataDefinition{
			{Name: "Category", Type: model.TypeString, Indexed: true},
			{Name: "Price", Type: model.TypeFloat64, Indexed: true},
			{Name: "Sizes", Type: model.TypeInt32, IsArray: true, Indexed: true},
		},
		Vectors: []model.VectorDefinition{
			{Name: "Vector", Dimensions: 3},
		},
	}, nil)
	if err != nil {
		t.Fatalf("BuildDynamic() error = %v", err)
	}
	return NewDynamic(m)
}

func TestDynamic_ToStorage(t *testing.T) {
	dm := dynamicMapper(t)
	doc, err := dm.ToStorage(map[string]any{
		"ProductId": int64(7),
		"Category":  "shoes",
		"Price":     59.99,
		"Sizes":     []any{float64(42), float64(43)},
		"Vector":    []float64{1, 0, 0},
	}, nil)
	if err != nil {
		t.Fatalf("ToStorage() error = %v", err)
	}
	if doc.ID != "7" {
		t.Errorf("doc ID = %q, want 7", doc.ID)
	}

	var b map[string]json.RawMessage
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		t.Fatalf("body: %v", err)
	}
	if _, ok := b["product_id"]; ok {
		t.Error("key leaked into the document body")
	}
	if got := string(b["vector"]); got != "[1,0,0]" {
		t.Errorf("vector = %s, want normalized float array", got)
	}
}

func TestDynamic_RoundTrip(t *testing.T) {
	dm := dynamicMapper(t)
	in := map[string]any{
		"ProductId": int64(11),
		"Category":  "boots",
		"Price":     120.5,
		"Sizes":     []any{float64(40)},
		"Vector":    []float32{0, 1, 0},
	}
	doc, err := dm.ToStorage(in, nil)
	if err != nil {
		t.Fatalf("ToStorage() error = %v", err)
	}

	out, err := dm.FromStorage(doc, true)
	if err != nil {
		t.Fatalf("FromStorage() error = %v", err)
	}
	back, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("FromStorage() returned %T, want map", out)
	}
	if back["ProductId"] != int64(11) {
		t.Errorf("ProductId = %v (%T), want typed int64", back["ProductId"], back["ProductId"])
	}
	if back["Category"] != "boots" || back["Price"] != 120.5 {
		t.Errorf("round trip = %+v", back)
	}
	if !reflect.DeepEqual(back["Sizes"], []any{int32(40)}) {
		t.Errorf("Sizes = %#v, want typed int32 elements", back["Sizes"])
	}
	if !reflect.DeepEqual(back["Vector"], []float32{0, 1, 0}) {
		t.Errorf("Vector = %#v", back["Vector"])
	}
}

func TestDynamic_FromStorage_VectorsExcluded(t *testing.T) {
	dm := dynamicMapper(t)
	doc := engine.Document{ID: "3", Body: json.RawMessage(`{"category":"hats","vector":[1,2,3]}`)}
	out, err := dm.FromStorage(doc, false)
	if err != nil {
		t.Fatalf("FromStorage() error = %v", err)
	}
	back := out.(map[string]any)
	if _, ok := back["Vector"]; ok {
		t.Error("vector returned despite includeVectors=false")
	}
	if back["Category"] != "hats" {
		t.Errorf("Category = %v", back["Category"])
	}
}

func TestDynamic_GeneratedOverride(t *testing.T) {
	dm := dynamicMapper(t)
	doc, err := dm.ToStorage(map[string]any{
		"ProductId": int64(9),
	}, [][]float32{{0.5, 0.5, 0.5}})
	if err != nil {
		t.Fatalf("ToStorage() error = %v", err)
	}
	var b map[string]json.RawMessage
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		t.Fatalf("body: %v", err)
	}
	if got := string(b["vector"]); got != "[0.5,0.5,0.5]" {
		t.Errorf("vector = %s, want generated embedding", got)
	}
}

func TestDynamic_MissingKey(t *testing.T) {
	dm := dynamicMapper(t)
	_, err := dm.ToStorage(map[string]any{"Category": "shoes"}, nil)
	var schemaErr *vserr.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("ToStorage() error = %v, want SchemaError", err)
	}
}

func TestDynamic_NotAMap(t *testing.T) {
	dm := dynamicMapper(t)
	_, err := dm.ToStorage(42, nil)
	var schemaErr *vserr.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("ToStorage() error = %v, want SchemaError", err)
	}
}

func TestDynamic_BadVectorElement(t *testing.T) {
	dm := dynamicMapper(t)
	_, err := dm.ToStorage(map[string]any{
		"ProductId": int64(1),
		"Vector":    []any{"not a number"},
	}, nil)
	var unsupported *vserr.UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("ToStorage() error = %v, want UnsupportedTypeError", err)
	}
}
