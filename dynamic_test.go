package vecbridge

import (
	"context"
	"errors"
	"testing"
)

type fakeGenerator struct {
	vector []float32
	calls  int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) ([]float32, error) {
	g.calls++
	return g.vector, nil
}

type article struct {
	ID   string `vecbridge:",key"`
	Body string `vecbridge:",vector,dims=3"`
}

func TestCollection_GeneratedEmbeddings(t *testing.T) {
	gen := &fakeGenerator{vector: []float32{1, 0, 0}}
	c, _ := testClient(t, gen)
	col, err := NewCollection[string, article](c, "articles")
	if err != nil {
		t.Fatalf("NewCollection() error = %v", err)
	}
	ctx := context.Background()
	if err := col.EnsureCreated(ctx); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}

	if err := col.Upsert(ctx, article{ID: "a1", Body: "vector stores explained"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times on upsert, want 1", gen.calls)
	}

	// Text search input goes through the same generator.
	hits, err := col.Search(ctx, "stores", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Record.ID != "a1" {
		t.Fatalf("Search() = %+v, want a1", hits)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times total, want 2", gen.calls)
	}

	// Generated embeddings cannot be read back as their text input.
	_, err = col.Get(ctx, "a1", GetOptions{IncludeVectors: true})
	var combo *UnsupportedCombinationError
	if !errors.As(err, &combo) {
		t.Fatalf("Get(IncludeVectors) error = %v, want UnsupportedCombinationError", err)
	}

	got, err := col.Get(ctx, "a1", GetOptions{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Body != "" {
		t.Errorf("Body = %q, want zero value for a generated vector property", got.Body)
	}
}

func productDefinition() RecordDefinition {
	return RecordDefinition{
		Key: KeyDefinition{Name: "ProductId", Type: TypeInt64},
		Data: []DataDefinition{
			{Name: "Category", Type: TypeString, Indexed: true},
			{Name: "Price", Type: TypeFloat64, Indexed: true},
		},
		Vectors: []VectorDefinition{
			{Name: "Vector", Dimensions: 3},
		},
	}
}

func TestDynamicCollection_RoundTrip(t *testing.T) {
	c, _ := testClient(t, nil)
	col, err := NewDynamicCollection(c, "products", productDefinition())
	if err != nil {
		t.Fatalf("NewDynamicCollection() error = %v", err)
	}
	ctx := context.Background()
	if err := col.EnsureCreated(ctx); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}

	err = col.UpsertBatch(ctx, []DynamicRecord{
		{"ProductId": int64(1), "Category": "shoes", "Price": 59.99, "Vector": []float32{1, 0, 0}},
		{"ProductId": int64(2), "Category": "boots", "Price": 120.0, "Vector": []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	got, err := col.Get(ctx, int64(1), GetOptions{IncludeVectors: true})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["ProductId"] != int64(1) || got["Category"] != "shoes" || got["Price"] != 59.99 {
		t.Errorf("Get() = %+v", got)
	}
	vec, ok := got["Vector"].([]float32)
	if !ok || len(vec) != 3 {
		t.Errorf("Vector = %#v", got["Vector"])
	}

	if _, err := col.Get(ctx, int64(99), GetOptions{}); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get(99) error = %v, want ErrRecordNotFound", err)
	}

	if err := col.Delete(ctx, int64(1)); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := col.Get(ctx, int64(1), GetOptions{}); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("record still present after delete")
	}
}

func TestDynamicCollection_Search(t *testing.T) {
	c, _ := testClient(t, nil)
	col, err := NewDynamicCollection(c, "products", productDefinition())
	if err != nil {
		t.Fatalf("NewDynamicCollection() error = %v", err)
	}
	ctx := context.Background()
	if err := col.EnsureCreated(ctx); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}
	err = col.UpsertBatch(ctx, []DynamicRecord{
		{"ProductId": int64(1), "Category": "shoes", "Price": 59.99, "Vector": []float32{1, 0, 0}},
		{"ProductId": int64(2), "Category": "boots", "Price": 120.0, "Vector": []float32{0.9, 0.1, 0}},
	})
	if err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	hits, err := col.Search(ctx, []float32{1, 0, 0}, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].Record["ProductId"] != int64(1) {
		t.Fatalf("Search() = %+v, want product 1 first", hits)
	}
}

func TestNewDynamicCollection_PropertyGenerator(t *testing.T) {
	gen := &fakeGenerator{vector: []float32{0, 0, 1}}
	c, _ := testClient(t, nil)

	def := productDefinition()
	def.Vectors = []VectorDefinition{
		{Name: "Vector", Dimensions: 3, Type: TypeString},
	}
	col, err := NewDynamicCollection(c, "products", def, WithPropertyGenerator("Vector", gen))
	if err != nil {
		t.Fatalf("NewDynamicCollection() error = %v", err)
	}
	ctx := context.Background()
	if err := col.EnsureCreated(ctx); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}

	err = col.Upsert(ctx, DynamicRecord{"ProductId": int64(5), "Vector": "leather boots"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}

	// The caller's definition is not mutated by attaching the generator.
	if def.Vectors[0].Generator != nil {
		t.Error("caller-supplied definition was mutated")
	}
}

func TestDynamicCollection_RawVectorGeneratorAllowsIncludeVectors(t *testing.T) {
	// A generator on a raw vector property embeds query inputs only; the
	// stored vector is the caller's own, so reading it back stays allowed.
	gen := &fakeGenerator{vector: []float32{0, 0, 1}}
	c, _ := testClient(t, nil)

	col, err := NewDynamicCollection(c, "products", productDefinition(),
		WithPropertyGenerator("Vector", gen))
	if err != nil {
		t.Fatalf("NewDynamicCollection() error = %v", err)
	}
	ctx := context.Background()
	if err := col.EnsureCreated(ctx); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}
	err = col.Upsert(ctx, DynamicRecord{"ProductId": int64(8), "Vector": []float32{1, 0, 0}})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on a raw vector upsert, want 0", gen.calls)
	}

	got, err := col.Get(ctx, int64(8), GetOptions{IncludeVectors: true})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	vec, ok := got["Vector"].([]float32)
	if !ok || len(vec) != 3 || vec[0] != 1 {
		t.Errorf("Vector = %v, want the stored [1 0 0]", got["Vector"])
	}

	// The generator still embeds non-vector search inputs.
	hits, err := col.Search(ctx, "boots", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times after text search, want 1", gen.calls)
	}
	if len(hits) == 0 {
		t.Error("Search() returned no hits")
	}
}
