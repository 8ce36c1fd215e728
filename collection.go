package vecbridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/mapping"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/record"
	"github.com/kailas-cloud/vecbridge/internal/search"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
	"github.com/kailas-cloud/vecbridge/pkg/filter"
)

// CollectionOption configures a collection handle.
type CollectionOption interface {
	apply(*collectionConfig)
}

type collectionOptionFunc func(*collectionConfig)

func (f collectionOptionFunc) apply(c *collectionConfig) { f(c) }

type collectionConfig struct {
	generators map[string]EmbeddingGenerator
	generator  EmbeddingGenerator
}

// WithPropertyGenerator attaches an embedding generator to the named vector
// property of this collection.
func WithPropertyGenerator(property string, g EmbeddingGenerator) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		if c.generators == nil {
			c.generators = make(map[string]EmbeddingGenerator)
		}
		c.generators[property] = g
	})
}

// WithGenerator overrides the client's default embedding generator for this
// collection.
func WithGenerator(g EmbeddingGenerator) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.generator = g
	})
}

// SearchOptions controls a vector search.
type SearchOptions struct {
	// VectorProperty names the vector property to search. May be empty when
	// the collection has exactly one.
	VectorProperty string
	// Filter restricts the candidate set. Nil matches everything.
	Filter filter.Expr
	Skip   int
	// Top is the result count. Zero means 10.
	Top int
	// IncludeVectors returns stored vector values on the mapped records.
	// Rejected on collections with generator-backed vector properties.
	IncludeVectors bool
}

// HybridSearchOptions controls a hybrid (vector plus keyword) search.
type HybridSearchOptions struct {
	SearchOptions
	// TextProperty names the full-text property for the keyword leg. May be
	// empty when the collection has exactly one.
	TextProperty string
	// RankWindow bounds how many candidates each retrieval leg contributes
	// before rank fusion. Zero means 100.
	RankWindow int
}

// GetOptions controls record retrieval.
type GetOptions struct {
	IncludeVectors bool
}

// Hit is one scored search result.
type Hit[T any] struct {
	Record T
	Score  float64
}

// collection is the handle core shared by the typed and dynamic variants.
type collection struct {
	name   string
	store  engine.Store
	model  *model.CollectionModel
	mapper record.Mapper
	schema *engine.IndexSchema
	search *search.Orchestrator
}

func newCollection(c *Client, name string, m *model.CollectionModel, mapper record.Mapper) (*collection, error) {
	if name == "" {
		return nil, &SchemaError{Reason: "collection name must not be empty"}
	}
	schema, err := mapping.BuildIndexSchema(m, c.mapOpts)
	if err != nil {
		return nil, err
	}
	return &collection{
		name:   name,
		store:  c.store,
		model:  m,
		mapper: mapper,
		schema: schema,
		search: search.New(c.store, m, mapper, name, c.log),
	}, nil
}

func (col *collection) storageErr(op string, err error) error {
	return &vserr.StorageOperationError{Collection: col.name, Operation: op, Err: err}
}

// ensureCreated creates the index if it does not exist. Idempotent.
func (col *collection) ensureCreated(ctx context.Context) error {
	err := col.store.CreateIndex(ctx, col.name, col.schema)
	if err != nil && !errors.Is(err, engine.ErrIndexExists) {
		return col.storageErr("ensure created", err)
	}
	return nil
}

func (col *collection) exists(ctx context.Context) (bool, error) {
	ok, err := col.store.IndexExists(ctx, col.name)
	if err != nil {
		return false, col.storageErr("exists", err)
	}
	return ok, nil
}

// drop deletes the index and its documents. Missing index is a no-op.
func (col *collection) drop(ctx context.Context) error {
	if err := col.store.DeleteIndex(ctx, col.name); err != nil {
		return col.storageErr("drop", err)
	}
	return nil
}

// checkIncludeVectors mirrors the search-side rejection for reads: generated
// vectors cannot be returned to the caller.
func (col *collection) checkIncludeVectors(include bool) error {
	if include && col.model.HasGeneratedVectors() {
		return &vserr.UnsupportedCombinationError{
			Reason: "cannot return vectors on a collection with generator-backed vector properties",
		}
	}
	return nil
}

func (col *collection) getDocument(ctx context.Context, key any) (engine.Document, error) {
	id, err := model.EncodeKey(key)
	if err != nil {
		return engine.Document{}, err
	}
	doc, err := col.store.GetDocument(ctx, col.name, id)
	if errors.Is(err, engine.ErrDocumentNotFound) {
		return engine.Document{}, ErrRecordNotFound
	}
	if err != nil {
		return engine.Document{}, col.storageErr("get", err)
	}
	return doc, nil
}

// getDocuments fetches keys in one round trip. Missing keys are skipped, so
// the result may be shorter than the input.
func (col *collection) getDocuments(ctx context.Context, keys []any) ([]engine.Document, error) {
	ids := make([]string, len(keys))
	for i, k := range keys {
		id, err := model.EncodeKey(k)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	docs, err := col.store.GetDocuments(ctx, col.name, ids)
	if err != nil {
		return nil, col.storageErr("get batch", err)
	}
	found := docs[:0]
	for _, d := range docs {
		if len(d.Body) > 0 {
			found = append(found, d)
		}
	}
	return found, nil
}

func (col *collection) upsert(ctx context.Context, rec any) error {
	doc, err := col.toDocument(ctx, rec)
	if err != nil {
		return err
	}
	if err := col.store.IndexDocument(ctx, col.name, doc); err != nil {
		return col.storageErr("upsert", err)
	}
	return nil
}

// upsertBatch embeds and serializes every record first, then writes all
// documents in one pipelined round trip. A mid-pipeline failure leaves
// already-written documents committed.
func (col *collection) upsertBatch(ctx context.Context, recs []any) error {
	docs := make([]engine.Document, len(recs))
	for i, rec := range recs {
		doc, err := col.toDocument(ctx, rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		docs[i] = doc
	}
	if err := col.store.IndexDocuments(ctx, col.name, docs); err != nil {
		return col.storageErr("upsert batch", err)
	}
	return nil
}

func (col *collection) toDocument(ctx context.Context, rec any) (engine.Document, error) {
	generated, err := col.search.GenerateEmbeddings(ctx, rec)
	if err != nil {
		return engine.Document{}, err
	}
	return col.mapper.ToStorage(rec, generated)
}

// delete removes one record. Missing keys are a no-op.
func (col *collection) delete(ctx context.Context, key any) error {
	id, err := model.EncodeKey(key)
	if err != nil {
		return err
	}
	if err := col.store.DeleteDocument(ctx, col.name, id); err != nil {
		return col.storageErr("delete", err)
	}
	return nil
}

func (col *collection) deleteBatch(ctx context.Context, keys []any) error {
	ids := make([]string, len(keys))
	for i, k := range keys {
		id, err := model.EncodeKey(k)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	if err := col.store.DeleteDocuments(ctx, col.name, ids); err != nil {
		return col.storageErr("delete batch", err)
	}
	return nil
}

// Collection is a typed handle onto one named collection. K is the key type
// (string, int64, or uuid.UUID) and T the record struct type. Handles are
// cheap, stateless across calls, and safe for concurrent use.
type Collection[K comparable, T any] struct {
	core *collection
}

// NewCollection builds a typed collection handle. The collection model is
// built once from T's struct tags; see the vecbridge tag format on the
// RecordDefinition types for the dynamic equivalent.
func NewCollection[K comparable, T any](c *Client, name string, opts ...CollectionOption) (*Collection[K, T], error) {
	cfg := &collectionConfig{generator: c.defaultGenerator}
	for _, o := range opts {
		o.apply(cfg)
	}

	recType := reflect.TypeOf((*T)(nil)).Elem()
	m, err := model.Build(recType, model.BuildOptions{
		Generators:       cfg.generators,
		DefaultGenerator: cfg.generator,
	})
	if err != nil {
		return nil, err
	}
	if err := checkKeyType[K](m); err != nil {
		return nil, err
	}
	mapper, err := record.NewTyped(recType, m)
	if err != nil {
		return nil, err
	}

	core, err := newCollection(c, name, m, mapper)
	if err != nil {
		return nil, err
	}
	return &Collection[K, T]{core: core}, nil
}

// checkKeyType verifies that K matches the model's declared key type, so key
// mismatches fail at construction rather than on the first operation.
func checkKeyType[K comparable](m *model.CollectionModel) error {
	kt := reflect.TypeOf((*K)(nil)).Elem()

	var want model.Type
	switch {
	case kt == reflect.TypeOf(uuid.UUID{}):
		want = model.TypeUUID
	case kt.Kind() == reflect.String:
		want = model.TypeString
	case kt.Kind() == reflect.Int64:
		want = model.TypeInt64
	default:
		return &vserr.UnsupportedTypeError{
			Property:  m.Key().Name(),
			Type:      kt.String(),
			Supported: []string{"string", "int64", "uuid.UUID"},
		}
	}
	if want != m.Key().Type() {
		return &vserr.SchemaError{
			Property: m.Key().Name(),
			Reason: fmt.Sprintf("key type parameter %s does not match declared key type %s",
				kt.String(), m.Key().Type()),
		}
	}
	return nil
}

// Name returns the collection name.
func (col *Collection[K, T]) Name() string { return col.core.name }

// EnsureCreated creates the collection's index if it does not exist.
// Idempotent; concurrent callers may race, the loser sees success.
func (col *Collection[K, T]) EnsureCreated(ctx context.Context) error {
	return col.core.ensureCreated(ctx)
}

// Exists reports whether the collection's index exists.
func (col *Collection[K, T]) Exists(ctx context.Context) (bool, error) {
	return col.core.exists(ctx)
}

// Drop deletes the collection's index and all its documents. Missing
// collections are a no-op.
func (col *Collection[K, T]) Drop(ctx context.Context) error {
	return col.core.drop(ctx)
}

// Get retrieves one record by key. Returns ErrRecordNotFound when absent.
func (col *Collection[K, T]) Get(ctx context.Context, key K, opts GetOptions) (T, error) {
	var zero T
	if err := col.core.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return zero, err
	}
	doc, err := col.core.getDocument(ctx, any(key))
	if err != nil {
		return zero, err
	}
	return col.fromDocument(doc, opts.IncludeVectors)
}

// GetBatch retrieves records for the given keys in one round trip. Missing
// keys are skipped, so the result may be shorter than the input.
func (col *Collection[K, T]) GetBatch(ctx context.Context, keys []K, opts GetOptions) ([]T, error) {
	if err := col.core.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return nil, err
	}
	anyKeys := make([]any, len(keys))
	for i, k := range keys {
		anyKeys[i] = k
	}
	docs, err := col.core.getDocuments(ctx, anyKeys)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := col.fromDocument(doc, opts.IncludeVectors)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Upsert creates or replaces one record. Text-typed vector properties are
// embedded through their generator before the write.
func (col *Collection[K, T]) Upsert(ctx context.Context, rec T) error {
	return col.core.upsert(ctx, rec)
}

// UpsertBatch creates or replaces records in one pipelined round trip.
// Not atomic: a failure partway leaves earlier documents committed.
func (col *Collection[K, T]) UpsertBatch(ctx context.Context, recs []T) error {
	anyRecs := make([]any, len(recs))
	for i, r := range recs {
		anyRecs[i] = r
	}
	return col.core.upsertBatch(ctx, anyRecs)
}

// Delete removes one record by key. Missing keys are a no-op.
func (col *Collection[K, T]) Delete(ctx context.Context, key K) error {
	return col.core.delete(ctx, any(key))
}

// DeleteBatch removes records by key in one round trip. Missing keys are
// skipped.
func (col *Collection[K, T]) DeleteBatch(ctx context.Context, keys []K) error {
	anyKeys := make([]any, len(keys))
	for i, k := range keys {
		anyKeys[i] = k
	}
	return col.core.deleteBatch(ctx, anyKeys)
}

// Search runs a filtered nearest-neighbor search. input is a query vector
// ([]float32 or Embedding), or text when the vector property has an embedding
// generator. Results come back in rank order, best first.
func (col *Collection[K, T]) Search(ctx context.Context, input any, opts SearchOptions) ([]Hit[T], error) {
	hits, err := col.core.search.Search(ctx, input, search.Options{
		VectorProperty: opts.VectorProperty,
		Filter:         opts.Filter,
		Skip:           opts.Skip,
		Top:            opts.Top,
		IncludeVectors: opts.IncludeVectors,
	})
	if err != nil {
		return nil, err
	}
	return typedHits[T](hits)
}

// HybridSearch fuses nearest-neighbor and keyword retrieval by reciprocal
// rank. The filter constrains both retrieval legs.
func (col *Collection[K, T]) HybridSearch(ctx context.Context, input any, keywords []string, opts HybridSearchOptions) ([]Hit[T], error) {
	hits, err := col.core.search.HybridSearch(ctx, input, keywords, search.HybridOptions{
		Options: search.Options{
			VectorProperty: opts.VectorProperty,
			Filter:         opts.Filter,
			Skip:           opts.Skip,
			Top:            opts.Top,
			IncludeVectors: opts.IncludeVectors,
		},
		TextProperty: opts.TextProperty,
		RankWindow:   opts.RankWindow,
	})
	if err != nil {
		return nil, err
	}
	return typedHits[T](hits)
}

func (col *Collection[K, T]) fromDocument(doc engine.Document, includeVectors bool) (T, error) {
	var zero T
	rec, err := col.core.mapper.FromStorage(doc, includeVectors)
	if err != nil {
		return zero, err
	}
	typed, ok := rec.(T)
	if !ok {
		return zero, &vserr.SchemaError{
			Reason: fmt.Sprintf("mapped record is %T, want %T", rec, zero),
		}
	}
	return typed, nil
}

func typedHits[T any](hits []search.Hit) ([]Hit[T], error) {
	out := make([]Hit[T], 0, len(hits))
	for _, h := range hits {
		rec, ok := h.Record.(T)
		if !ok {
			var zero T
			return nil, &vserr.SchemaError{
				Reason: fmt.Sprintf("mapped record is %T, want %T", h.Record, zero),
			}
		}
		out = append(out, Hit[T]{Record: rec, Score: h.Score})
	}
	return out, nil
}
