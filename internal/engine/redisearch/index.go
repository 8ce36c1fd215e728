package redisearch

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

// CreateIndex creates an FT index ON JSON over the collection's key prefix.
func (s *Store) CreateIndex(ctx context.Context, name string, schema *engine.IndexSchema) (err error) {
	defer observe("create_index", time.Now(), &err)

	if err = schema.Validate(); err != nil {
		return &engine.Error{Op: engine.OpCreateIndex, Index: name, Err: err}
	}
	args, err := s.buildCreateArgs(name, schema)
	if err != nil {
		return &engine.Error{Op: engine.OpCreateIndex, Index: name, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err = s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			err = engine.ErrIndexExists
			return err
		}
		err = &engine.Error{Op: engine.OpCreateIndex, Index: name, Err: err}
		return err
	}
	s.log.Info("index created", zap.String("index", name), zap.Int("fields", len(schema.Fields)))
	return nil
}

// DeleteIndex drops the FT index and its documents. A missing index is a
// no-op.
func (s *Store) DeleteIndex(ctx context.Context, name string) (err error) {
	defer observe("delete_index", time.Now(), &err)

	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err = s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil
		}
		err = &engine.Error{Op: engine.OpDeleteIndex, Index: name, Err: err}
		return err
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (ok bool, err error) {
	defer observe("index_exists", time.Now(), &err)

	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err = s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return false, nil
		}
		err = &engine.Error{Op: engine.OpIndexExists, Index: name, Err: err}
		return false, err
	}
	return true, nil
}

// ListIndices returns the names of all FT indices.
func (s *Store) ListIndices(ctx context.Context) (names []string, err error) {
	defer observe("list_indices", time.Now(), &err)

	cmd := s.b().Arbitrary("FT._LIST").Build()
	names, err = s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		err = &engine.Error{Op: engine.OpListIndices, Err: err}
		return nil, err
	}
	return names, nil
}

func (s *Store) buildCreateArgs(name string, schema *engine.IndexSchema) ([]string, error) {
	if name == "" {
		return nil, errors.New("index name is required")
	}
	if len(schema.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{name, "ON", "JSON", "PREFIX", "1", s.prefix + name + ":", "SCHEMA"}

	indexed := 0
	for i := range schema.Fields {
		f := &schema.Fields[i]
		if f.Type == engine.MappingStored {
			// Stored-only fields live in the JSON body and carry no index.
			continue
		}
		fieldArgs, err := buildFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
		indexed++
	}
	if indexed == 0 {
		return nil, errors.New("at least one indexed field is required")
	}

	return args, nil
}

func buildFieldArgs(f *engine.FieldMapping) ([]string, error) {
	path := "$." + f.Name
	if f.IsArray {
		path += "[*]"
	}
	args := []string{path, "AS", f.Name}

	switch f.Type {
	case engine.MappingByte, engine.MappingShort, engine.MappingInteger,
		engine.MappingLong, engine.MappingUnsignedLong,
		engine.MappingFloat, engine.MappingDouble:
		args = append(args, "NUMERIC", "INDEXMISSING")

	case engine.MappingText:
		args = append(args, "TEXT", "INDEXMISSING")

	case engine.MappingKeyword, engine.MappingBoolean, engine.MappingDate:
		// No native date type; dates are indexed as exact-match tags over
		// their serialized form.
		args = append(args, "TAG", "INDEXMISSING")

	case engine.MappingDenseVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)

	default:
		return nil, errors.New("unknown mapping type: " + string(f.Type))
	}

	return args, nil
}

func buildVectorFieldArgs(f *engine.FieldMapping) ([]string, error) {
	algo, err := lowerIndexKind(f.IndexKind)
	if err != nil {
		return nil, err
	}
	metric, err := lowerSimilarity(f.Similarity)
	if err != nil {
		return nil, err
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.Dims),
		"DISTANCE_METRIC", metric,
	}
	if algo == "HNSW" {
		if f.HNSWM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.HNSWM))
		}
		if f.HNSWEFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.HNSWEFConstruction))
		}
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", algo, strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result, nil
}

// lowerIndexKind collapses quantized index kinds onto the engine's two
// algorithms; quantization is an accuracy/memory hint the engine does not
// expose separately.
func lowerIndexKind(kind string) (string, error) {
	switch kind {
	case "hnsw", "int8_hnsw", "int4_hnsw", "bbq_hnsw":
		return "HNSW", nil
	case "flat", "int8_flat", "bbq_flat":
		return "FLAT", nil
	}
	return "", errors.New("unknown vector index kind: " + kind)
}

func lowerSimilarity(similarity string) (string, error) {
	switch similarity {
	case "cosine":
		return "COSINE", nil
	case "dot_product", "max_inner_product":
		return "IP", nil
	case "l2_norm":
		return "L2", nil
	}
	return "", errors.New("unknown similarity: " + similarity)
}
