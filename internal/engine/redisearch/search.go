package redisearch

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

const scoreField = "__vector_score"

// Search runs a filtered KNN vector search via FT.SEARCH.
func (s *Store) Search(ctx context.Context, index string, req *engine.SearchRequest) (res *engine.SearchResult, err error) {
	defer observe("search", time.Now(), &err)

	if err = validateVectorQuery(&req.Vector); err != nil {
		err = &engine.Error{Op: engine.OpSearch, Index: index, Err: err}
		return nil, err
	}

	filterStr, err := compileQuery(req.Filter)
	if err != nil {
		err = &engine.Error{Op: engine.OpSearch, Index: index, Err: err}
		return nil, err
	}

	size := req.Size
	if size <= 0 {
		size = req.Vector.K
	}
	args := knnArgs(index, filterStr, &req.Vector, req.Skip, size)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		err = &engine.Error{Op: engine.OpSearch, Index: index, Err: err}
		return nil, err
	}

	res, err = s.parseKNNResult(index, req.Vector.Similarity, raw)
	if err != nil {
		err = &engine.Error{Op: engine.OpSearch, Index: index, Err: err}
		return nil, err
	}
	return res, nil
}

// HybridSearch runs the KNN and full-text legs as two FT.SEARCH calls in one
// pipelined round trip and fuses them by reciprocal rank. The filter is
// compiled into both legs.
func (s *Store) HybridSearch(ctx context.Context, index string, req *engine.HybridRequest) (res *engine.SearchResult, err error) {
	defer observe("hybrid_search", time.Now(), &err)

	if err = validateVectorQuery(&req.Vector); err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: err}
		return nil, err
	}
	if req.Keyword.Field == "" || req.Keyword.Text == "" {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index,
			Err: fmt.Errorf("keyword field and text are required")}
		return nil, err
	}

	filterStr, err := compileQuery(req.Filter)
	if err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: err}
		return nil, err
	}

	fusion := req.Fusion
	if fusion.WindowSize <= 0 {
		fusion.WindowSize = engine.DefaultRankWindow
	}
	if fusion.RankConstant <= 0 {
		fusion.RankConstant = engine.DefaultRankConstant
	}

	vecLeg := engine.VectorQuery{Field: req.Vector.Field, Vector: req.Vector.Vector, K: fusion.WindowSize}
	knnCmd := s.b().Arbitrary("FT.SEARCH").
		Args(knnArgs(index, filterStr, &vecLeg, 0, fusion.WindowSize)...).
		Build()
	textCmd := s.b().Arbitrary("FT.SEARCH").
		Args(textArgs(index, filterStr, &req.Keyword, fusion.WindowSize)...).
		Build()

	results := s.client.DoMulti(ctx, knnCmd, textCmd)

	knnRaw, err := results[0].ToArray()
	if err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: fmt.Errorf("knn leg: %w", err)}
		return nil, err
	}
	textRaw, err := results[1].ToArray()
	if err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: fmt.Errorf("text leg: %w", err)}
		return nil, err
	}

	knn, err := s.parseKNNResult(index, req.Vector.Similarity, knnRaw)
	if err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: err}
		return nil, err
	}
	text, err := s.parseTextResult(index, textRaw)
	if err != nil {
		err = &engine.Error{Op: engine.OpHybridSearch, Index: index, Err: err}
		return nil, err
	}

	fused := fuseRRF(knn.Hits, text.Hits, fusion.RankConstant)

	// Paginate after fusion: the legs are rank windows, not pages.
	if req.Skip > 0 {
		if req.Skip >= len(fused) {
			fused = nil
		} else {
			fused = fused[req.Skip:]
		}
	}
	size := req.Size
	if size > 0 && len(fused) > size {
		fused = fused[:size]
	}

	s.log.Debug("hybrid search fused",
		zap.String("index", index),
		zap.Int("knn_hits", len(knn.Hits)),
		zap.Int("text_hits", len(text.Hits)),
		zap.Int("fused", len(fused)))

	return &engine.SearchResult{Total: len(fused), Hits: fused}, nil
}

func validateVectorQuery(v *engine.VectorQuery) error {
	if v.Field == "" {
		return fmt.Errorf("vector field is required")
	}
	if len(v.Vector) == 0 {
		return fmt.Errorf("vector is required")
	}
	if v.K <= 0 {
		return fmt.Errorf("k must be positive")
	}
	return nil
}

func knnArgs(index, filterStr string, v *engine.VectorQuery, skip, size int) []string {
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", v.K, v.Field, scoreField)
	queryStr := "*=>" + knnPart
	if filterStr != "*" {
		queryStr = "(" + filterStr + ")=>" + knnPart
	}

	return []string{
		index, queryStr,
		"RETURN", "2", scoreField, "$",
		"SORTBY", scoreField, "ASC",
		"LIMIT", strconv.Itoa(skip), strconv.Itoa(size),
		"PARAMS", "2", "BLOB", vectorToBytes(v.Vector),
		"DIALECT", "2",
	}
}

func textArgs(index, filterStr string, m *engine.Match, window int) []string {
	textPart := compileMatch(m)
	queryStr := textPart
	if filterStr != "*" {
		queryStr = filterStr + " " + textPart
	}

	return []string{
		index, queryStr,
		"WITHSCORES",
		"RETURN", "1", "$",
		"LIMIT", "0", strconv.Itoa(window),
		"DIALECT", "2",
	}
}

// parseKNNResult walks the 2-stride reply: [total, key1, fields1, ...].
// Hits carry the engine-reported distance converted to a similarity score
// for the given similarity function.
func (s *Store) parseKNNResult(index, similarity string, raw []rueidis.RedisMessage) (*engine.SearchResult, error) {
	if len(raw) == 0 {
		return &engine.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &engine.SearchResult{}, nil
	}

	hits := make([]engine.Hit, 0, len(raw)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)
		hit := engine.Hit{ID: s.docID(index, key), Body: []byte(pairs["$"])}
		if scoreStr, ok := pairs[scoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				hit.Score = similarityScore(similarity, d)
			}
		}
		hits = append(hits, hit)
	}

	return &engine.SearchResult{Total: int(total), Hits: hits}, nil
}

// parseTextResult walks the 3-stride WITHSCORES reply:
// [total, key1, score1, fields1, ...].
func (s *Store) parseTextResult(index string, raw []rueidis.RedisMessage) (*engine.SearchResult, error) {
	if len(raw) == 0 {
		return &engine.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &engine.SearchResult{}, nil
	}

	hits := make([]engine.Hit, 0, len(raw)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)
		hits = append(hits, engine.Hit{
			ID:    s.docID(index, key),
			Score: score,
			Body:  []byte(pairs["$"]),
		})
	}

	return &engine.SearchResult{Total: int(total), Hits: hits}, nil
}

// similarityScore converts the engine-reported distance into a similarity.
// The engine reports 1-cos for COSINE, 1-dot for IP, and the squared
// euclidean distance for L2.
func similarityScore(similarity string, d float64) float64 {
	switch similarity {
	case "l2_norm":
		return 1.0 / (1.0 + d)
	case "dot_product", "max_inner_product":
		return 1.0 - d
	default: // cosine
		return max(0, 1.0-d)
	}
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// fuseRRF merges the two retrieval legs via reciprocal rank fusion:
// score(d) = sum over legs of 1/(k + rank(d)). When a document appears in
// both legs the KNN hit's body is kept.
func fuseRRF(knn, text []engine.Hit, rankConstant int) []engine.Hit {
	type scored struct {
		hit   engine.Hit
		score float64
	}

	merged := make(map[string]*scored, len(knn)+len(text))
	order := make([]string, 0, len(knn)+len(text))

	for rank, h := range knn {
		merged[h.ID] = &scored{hit: h, score: 1.0 / float64(rankConstant+rank+1)}
		order = append(order, h.ID)
	}
	for rank, h := range text {
		s := 1.0 / float64(rankConstant+rank+1)
		if existing, ok := merged[h.ID]; ok {
			existing.score += s
			continue
		}
		merged[h.ID] = &scored{hit: h, score: s}
		order = append(order, h.ID)
	}

	fused := make([]engine.Hit, 0, len(merged))
	for _, id := range order {
		s := merged[id]
		s.hit.Score = s.score
		fused = append(fused, s.hit)
	}

	// Stable sort keeps first-seen order for equal fused scores.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
