// Package search orchestrates vector and hybrid searches for one collection:
// it resolves which vector (and, for hybrid, which full-text) property a
// request targets, turns the search input into a query vector, translates the
// filter, and maps engine hits back into records. The embedding generator is
// the only call-out besides the store itself.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/model"
	"github.com/kailas-cloud/vecbridge/internal/query"
	"github.com/kailas-cloud/vecbridge/internal/record"
	"github.com/kailas-cloud/vecbridge/internal/vserr"
	"github.com/kailas-cloud/vecbridge/pkg/filter"
)

// DefaultTop is the result count used when a request does not set one.
const DefaultTop = 10

// Options controls a vector search.
type Options struct {
	// VectorProperty names the vector property to search. May be empty when
	// the model has exactly one.
	VectorProperty string
	Filter         filter.Expr
	Skip           int
	Top            int
	IncludeVectors bool
}

// HybridOptions controls a hybrid (vector plus keyword) search.
type HybridOptions struct {
	Options
	// TextProperty names the full-text property for the keyword leg. May be
	// empty when the model has exactly one.
	TextProperty string
	// RankWindow bounds how many candidates each retrieval leg contributes
	// before fusion. Zero means engine.DefaultRankWindow.
	RankWindow int
}

// Hit is one scored, mapped search result.
type Hit struct {
	Record any
	Score  float64
}

// Orchestrator runs searches against one collection. It is stateless across
// calls and safe for concurrent use.
type Orchestrator struct {
	store      engine.Store
	model      *model.CollectionModel
	mapper     record.Mapper
	collection string
	log        *zap.Logger
}

// New builds an orchestrator for the collection. A nil logger is replaced
// with a nop logger.
func New(store engine.Store, m *model.CollectionModel, mapper record.Mapper, collection string, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:      store,
		model:      m,
		mapper:     mapper,
		collection: collection,
		log:        log,
	}
}

// Search runs a filtered nearest-neighbor search. input is either a query
// vector ([]float32 or Embedding) or a value the resolved property's
// embedding generator can embed.
func (o *Orchestrator) Search(ctx context.Context, input any, opts Options) ([]Hit, error) {
	if err := o.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return nil, err
	}
	prop, err := o.resolveVectorProperty(opts.VectorProperty)
	if err != nil {
		return nil, err
	}
	vector, err := o.resolveQueryVector(ctx, prop, input)
	if err != nil {
		return nil, err
	}
	fexpr, err := query.Translate(opts.Filter, o.model)
	if err != nil {
		return nil, err
	}

	top := opts.Top
	if top <= 0 {
		top = DefaultTop
	}
	req := &engine.SearchRequest{
		Vector: engine.VectorQuery{
			Field:      prop.StorageName(),
			Vector:     vector,
			K:          opts.Skip + top,
			Similarity: string(prop.Distance()),
		},
		Filter: fexpr,
		Skip:   opts.Skip,
		Size:   top,
	}

	res, err := o.store.Search(ctx, o.collection, req)
	if err != nil {
		return nil, &vserr.StorageOperationError{
			Collection: o.collection, Operation: "search", Err: err,
		}
	}
	o.log.Debug("search executed",
		zap.String("collection", o.collection),
		zap.String("vector_property", prop.Name()),
		zap.Int("hits", len(res.Hits)))
	return o.mapHits(res, opts.IncludeVectors)
}

// HybridSearch runs nearest-neighbor and keyword retrieval fused by
// reciprocal rank. The filter constrains both legs.
func (o *Orchestrator) HybridSearch(ctx context.Context, input any, keywords []string, opts HybridOptions) ([]Hit, error) {
	if err := o.checkIncludeVectors(opts.IncludeVectors); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, &vserr.UnsupportedCombinationError{Reason: "hybrid search requires at least one keyword"}
	}
	prop, err := o.resolveVectorProperty(opts.VectorProperty)
	if err != nil {
		return nil, err
	}
	text, err := o.resolveTextProperty(opts.TextProperty)
	if err != nil {
		return nil, err
	}
	vector, err := o.resolveQueryVector(ctx, prop, input)
	if err != nil {
		return nil, err
	}
	fexpr, err := query.Translate(opts.Filter, o.model)
	if err != nil {
		return nil, err
	}

	top := opts.Top
	if top <= 0 {
		top = DefaultTop
	}
	window := opts.RankWindow
	if window <= 0 {
		window = engine.DefaultRankWindow
	}
	req := &engine.HybridRequest{
		Vector: engine.VectorQuery{
			Field:      prop.StorageName(),
			Vector:     vector,
			K:          window,
			Similarity: string(prop.Distance()),
		},
		Keyword: engine.Match{
			Field: text.StorageName(),
			Text:  strings.Join(keywords, " "),
		},
		Filter: fexpr,
		Fusion: engine.RankFusion{
			WindowSize:   window,
			RankConstant: engine.DefaultRankConstant,
		},
		Skip: opts.Skip,
		Size: top,
	}

	res, err := o.store.HybridSearch(ctx, o.collection, req)
	if err != nil {
		return nil, &vserr.StorageOperationError{
			Collection: o.collection, Operation: "hybrid search", Err: err,
		}
	}
	o.log.Debug("hybrid search executed",
		zap.String("collection", o.collection),
		zap.String("vector_property", prop.Name()),
		zap.String("text_property", text.Name()),
		zap.Int("hits", len(res.Hits)))
	return o.mapHits(res, opts.IncludeVectors)
}

// GenerateEmbeddings produces write-time embeddings for the record's
// generator-backed vector properties, aligned with the model's vector order.
// It returns nil when the model has no generated vectors.
func (o *Orchestrator) GenerateEmbeddings(ctx context.Context, rec any) ([][]float32, error) {
	if !o.model.HasGeneratedVectors() {
		return nil, nil
	}
	vectors := o.model.Vectors()
	out := make([][]float32, len(vectors))
	for i, p := range vectors {
		if !p.IsGenerated() {
			continue
		}
		input, err := o.mapper.VectorInput(rec, i)
		if err != nil {
			return nil, err
		}
		text, ok := input.(string)
		if !ok {
			return nil, &vserr.IncompatibleGeneratorError{
				Property:  p.Name(),
				InputType: fmt.Sprintf("%T", input),
			}
		}
		emb, err := p.Generator().Generate(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("generate embedding for property %q: %w", p.Name(), err)
		}
		if len(emb) != p.Dimensions() {
			return nil, &vserr.IncompatibleGeneratorError{
				Property:  p.Name(),
				InputType: fmt.Sprintf("%d-dimensional output, property expects %d", len(emb), p.Dimensions()),
			}
		}
		out[i] = emb
	}
	return out, nil
}

// checkIncludeVectors rejects includeVectors on models with generated
// vectors before any store call: the original non-vector input cannot be
// reconstructed from the stored embedding.
func (o *Orchestrator) checkIncludeVectors(include bool) error {
	if include && o.model.HasGeneratedVectors() {
		return &vserr.UnsupportedCombinationError{
			Reason: "cannot return vectors on a collection with generator-backed vector properties",
		}
	}
	return nil
}

func (o *Orchestrator) resolveVectorProperty(name string) (model.VectorProperty, error) {
	vectors := o.model.Vectors()
	if name != "" {
		p, ok := o.model.VectorByName(name)
		if !ok {
			return model.VectorProperty{}, &vserr.SchemaError{Property: name, Reason: "unknown vector property"}
		}
		return p, nil
	}
	if len(vectors) == 1 {
		return vectors[0], nil
	}
	return model.VectorProperty{}, &vserr.AmbiguousPropertyError{Kind: "vector", Candidates: len(vectors)}
}

func (o *Orchestrator) resolveTextProperty(name string) (model.DataProperty, error) {
	if name != "" {
		p, ok := o.model.DataByName(name)
		if !ok {
			return model.DataProperty{}, &vserr.SchemaError{Property: name, Reason: "unknown property"}
		}
		if !p.IsFullTextIndexed() {
			return model.DataProperty{}, &vserr.SchemaError{Property: name, Reason: "property is not full-text indexed"}
		}
		return p, nil
	}
	var candidates []model.DataProperty
	for _, p := range o.model.Data() {
		if p.IsFullTextIndexed() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return model.DataProperty{}, &vserr.AmbiguousPropertyError{Kind: "full-text", Candidates: len(candidates)}
}

// resolveQueryVector turns the search input into a numeric vector. Vector
// inputs pass through with a dimension check; anything else goes through the
// property's embedding generator.
func (o *Orchestrator) resolveQueryVector(ctx context.Context, p model.VectorProperty, input any) ([]float32, error) {
	switch v := input.(type) {
	case []float32:
		return o.checkDimensions(p, v)
	case model.Embedding:
		return o.checkDimensions(p, v.Values)
	case *model.Embedding:
		if v == nil {
			break
		}
		return o.checkDimensions(p, v.Values)
	case string:
		if !p.HasGenerator() {
			return nil, &vserr.NoEmbeddingGeneratorError{Property: p.Name(), InputType: "string"}
		}
		emb, err := p.Generator().Generate(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("embed search input for property %q: %w", p.Name(), err)
		}
		return o.checkDimensions(p, emb)
	}
	if p.HasGenerator() {
		return nil, &vserr.IncompatibleGeneratorError{
			Property:  p.Name(),
			InputType: fmt.Sprintf("%T", input),
		}
	}
	return nil, &vserr.NoEmbeddingGeneratorError{
		Property:  p.Name(),
		InputType: fmt.Sprintf("%T", input),
	}
}

func (o *Orchestrator) checkDimensions(p model.VectorProperty, v []float32) ([]float32, error) {
	if len(v) != p.Dimensions() {
		return nil, &vserr.SchemaError{
			Property: p.Name(),
			Reason:   fmt.Sprintf("query vector has %d dimensions, property expects %d", len(v), p.Dimensions()),
		}
	}
	return v, nil
}

func (o *Orchestrator) mapHits(res *engine.SearchResult, includeVectors bool) ([]Hit, error) {
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		rec, err := o.mapper.FromStorage(engine.Document{ID: h.ID, Body: h.Body}, includeVectors)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Record: rec, Score: h.Score})
	}
	return hits, nil
}
