package vecbridge

import (
	"context"

	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/record"
	"github.com/kailas-cloud/vecbridge/internal/search"
)

// DynamicRecord is a schemaless record: property name to value, per the
// collection's RecordDefinition.
type DynamicRecord = map[string]any

// DynamicCollection is a schemaless handle onto one named collection.
// Records are string-keyed maps described by an explicit RecordDefinition
// instead of struct tags. Safe for concurrent use.
type DynamicCollection struct {
	core *collection
}

// NewDynamicCollection builds a dynamic collection handle from an explicit
// definition.
func NewDynamicCollection(c *Client, name string, def RecordDefinition, opts ...CollectionOption) (*DynamicCollection, error) {
	cfg := &collectionConfig{generator: c.defaultGenerator}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.generators != nil {
		// Copy before attaching generators; the caller's slice stays untouched.
		vectors := make([]VectorDefinition, len(def.Vectors))
		copy(vectors, def.Vectors)
		for i := range vectors {
			if g, ok := cfg.generators[vectors[i].Name]; ok {
				vectors[i].Generator = g
			}
		}
		def.Vectors = vectors
	}

	m, err := model.BuildDynamic(def, cfg.generator)
	if err != nil {
		return nil, err
	}
	core, err := newCollection(c, name, m, record.NewDynamic(m))
	if err != nil {
		return nil, err
	}
	return &DynamicCollection{core: core}, nil
}

// Name returns the collection name.
func (col *DynamicCollection) Name() string { return col.core.name }

// EnsureCreated creates the collection's index if it does not exist.
func (col *DynamicCollection) EnsureCreated(ctx context.Context) error {
	return col.core.ensureCreated(ctx)
}

// Exists reports whether the collection's index exists.
func (col *DynamicCollection) Exists(ctx context.Context) (bool, error) {
	return col.core.exists(ctx)
}

// Drop deletes the collection's index and all its documents.
func (col *DynamicCollection) Drop(ctx context.Context) error {
	return col.core.drop(ctx)
}

// Get retrieves one record by key. The key must be the definition's declared
// key type. Returns ErrRecordNotFound when absent.
func (col *DynamicCollection) Get(ctx context.Context, key any, opts GetOptions) (DynamicRecord, error) {
	if err := col.core.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return nil, err
	}
	doc, err := col.core.getDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, err := col.core.mapper.FromStorage(doc, opts.IncludeVectors)
	if err != nil {
		return nil, err
	}
	return rec.(DynamicRecord), nil
}

// GetBatch retrieves records for the given keys in one round trip. Missing
// keys are skipped.
func (col *DynamicCollection) GetBatch(ctx context.Context, keys []any, opts GetOptions) ([]DynamicRecord, error) {
	if err := col.core.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return nil, err
	}
	docs, err := col.core.getDocuments(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]DynamicRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := col.core.mapper.FromStorage(doc, opts.IncludeVectors)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.(DynamicRecord))
	}
	return out, nil
}

// Upsert creates or replaces one record.
func (col *DynamicCollection) Upsert(ctx context.Context, rec DynamicRecord) error {
	return col.core.upsert(ctx, rec)
}

// UpsertBatch creates or replaces records in one pipelined round trip.
func (col *DynamicCollection) UpsertBatch(ctx context.Context, recs []DynamicRecord) error {
	anyRecs := make([]any, len(recs))
	for i, r := range recs {
		anyRecs[i] = r
	}
	return col.core.upsertBatch(ctx, anyRecs)
}

// Delete removes one record by key. Missing keys are a no-op.
func (col *DynamicCollection) Delete(ctx context.Context, key any) error {
	return col.core.delete(ctx, key)
}

// DeleteBatch removes records by key in one round trip.
func (col *DynamicCollection) DeleteBatch(ctx context.Context, keys []any) error {
	return col.core.deleteBatch(ctx, keys)
}

// Search runs a filtered nearest-neighbor search and returns dynamic records
// in rank order.
func (col *DynamicCollection) Search(ctx context.Context, input any, opts SearchOptions) ([]Hit[DynamicRecord], error) {
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
	return typedHits[DynamicRecord](hits)
}

// HybridSearch fuses nearest-neighbor and keyword retrieval by reciprocal
// rank.
func (col *DynamicCollection) HybridSearch(ctx context.Context, input any, keywords []string, opts HybridSearchOptions) ([]Hit[DynamicRecord], error) {
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
	return typedHits[DynamicRecord](hits)
}
