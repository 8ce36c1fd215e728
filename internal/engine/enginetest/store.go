// Package enginetest provides an in-memory engine.Store for tests: it keeps
// documents as parsed JSON, evaluates the query tree brute force, and ranks
// vector legs by exact cosine similarity. Not for production use.
package enginetest

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

var _ engine.Store = (*Store)(nil)

// Store is a map-backed engine.Store.
type Store struct {
	mu      sync.RWMutex
	schemas map[string]*engine.IndexSchema
	docs    map[string]map[string]json.RawMessage

	// PingErr, when set, is returned by Ping and WaitForReady.
	PingErr error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		schemas: make(map[string]*engine.IndexSchema),
		docs:    make(map[string]map[string]json.RawMessage),
	}
}

func (s *Store) Ping(context.Context) error { return s.PingErr }

func (s *Store) WaitForReady(context.Context, time.Duration) error { return s.PingErr }

func (s *Store) Close() {}

func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.schemas[name]
	return ok, nil
}

func (s *Store) CreateIndex(_ context.Context, name string, schema *engine.IndexSchema) error {
	if err := schema.Validate(); err != nil {
		return &engine.Error{Op: engine.OpCreateIndex, Index: name, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schemas[name]; ok {
		return engine.ErrIndexExists
	}
	s.schemas[name] = schema
	s.docs[name] = make(map[string]json.RawMessage)
	return nil
}

func (s *Store) DeleteIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schemas, name)
	delete(s.docs, name)
	return nil
}

func (s *Store) ListIndices(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) GetDocument(_ context.Context, index, id string) (engine.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[index][id]
	if !ok {
		return engine.Document{}, engine.ErrDocumentNotFound
	}
	return engine.Document{ID: id, Body: body}, nil
}

func (s *Store) GetDocuments(_ context.Context, index string, ids []string) ([]engine.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]engine.Document, len(ids))
	for i, id := range ids {
		docs[i].ID = id
		if body, ok := s.docs[index][id]; ok {
			docs[i].Body = body
		}
	}
	return docs, nil
}

func (s *Store) IndexDocument(_ context.Context, index string, doc engine.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[index] == nil {
		s.docs[index] = make(map[string]json.RawMessage)
	}
	s.docs[index][doc.ID] = doc.Body
	return nil
}

func (s *Store) IndexDocuments(ctx context.Context, index string, docs []engine.Document) error {
	for _, doc := range docs {
		if err := s.IndexDocument(ctx, index, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, index, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[index], id)
	return nil
}

func (s *Store) DeleteDocuments(ctx context.Context, index string, ids []string) error {
	for _, id := range ids {
		if err := s.DeleteDocument(ctx, index, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Search(_ context.Context, index string, req *engine.SearchRequest) (*engine.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.knnLeg(index, req.Filter, &req.Vector)
	hits = paginate(hits, req.Skip, req.Size)
	return &engine.SearchResult{Total: len(hits), Hits: hits}, nil
}

func (s *Store) HybridSearch(_ context.Context, index string, req *engine.HybridRequest) (*engine.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fusion := req.Fusion
	if fusion.WindowSize <= 0 {
		fusion.WindowSize = engine.DefaultRankWindow
	}
	if fusion.RankConstant <= 0 {
		fusion.RankConstant = engine.DefaultRankConstant
	}

	vec := req.Vector
	vec.K = fusion.WindowSize
	knn := s.knnLeg(index, req.Filter, &vec)
	text := s.textLeg(index, req.Filter, &req.Keyword, fusion.WindowSize)

	type scored struct {
		hit   engine.Hit
		score float64
	}
	merged := make(map[string]*scored)
	order := []string{}
	for rank, h := range knn {
		merged[h.ID] = &scored{hit: h, score: 1.0 / float64(fusion.RankConstant+rank+1)}
		order = append(order, h.ID)
	}
	for rank, h := range text {
		rrf := 1.0 / float64(fusion.RankConstant+rank+1)
		if e, ok := merged[h.ID]; ok {
			e.score += rrf
			continue
		}
		merged[h.ID] = &scored{hit: h, score: rrf}
		order = append(order, h.ID)
	}

	fused := make([]engine.Hit, 0, len(merged))
	for _, id := range order {
		e := merged[id]
		e.hit.Score = e.score
		fused = append(fused, e.hit)
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })

	fused = paginate(fused, req.Skip, req.Size)
	return &engine.SearchResult{Total: len(fused), Hits: fused}, nil
}

func paginate(hits []engine.Hit, skip, size int) []engine.Hit {
	if skip > 0 {
		if skip >= len(hits) {
			return nil
		}
		hits = hits[skip:]
	}
	if size > 0 && len(hits) > size {
		hits = hits[:size]
	}
	return hits
}

func (s *Store) knnLeg(index string, filter engine.Query, vec *engine.VectorQuery) []engine.Hit {
	var hits []engine.Hit
	for _, id := range sortedIDs(s.docs[index]) {
		body := s.docs[index][id]
		fields := parseBody(body)
		if !evaluate(filter, fields) {
			continue
		}
		doc := vectorField(fields, vec.Field)
		if doc == nil {
			continue
		}
		hits = append(hits, engine.Hit{ID: id, Score: cosine(vec.Vector, doc), Body: body})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if vec.K > 0 && len(hits) > vec.K {
		hits = hits[:vec.K]
	}
	return hits
}

func (s *Store) textLeg(index string, filter engine.Query, m *engine.Match, window int) []engine.Hit {
	terms := strings.Fields(strings.ToLower(m.Text))
	var hits []engine.Hit
	for _, id := range sortedIDs(s.docs[index]) {
		body := s.docs[index][id]
		fields := parseBody(body)
		if !evaluate(filter, fields) {
			continue
		}
		text, _ := fields[m.Field].(string)
		score := matchScore(strings.ToLower(text), terms)
		if score <= 0 {
			continue
		}
		hits = append(hits, engine.Hit{ID: id, Score: score, Body: body})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if window > 0 && len(hits) > window {
		hits = hits[:window]
	}
	return hits
}

// matchScore counts how many query terms occur in the document text; crude
// but rank-stable, which is all fusion needs.
func matchScore(text string, terms []string) float64 {
	words := strings.Fields(text)
	score := 0.0
	for _, term := range terms {
		for _, w := range words {
			if strings.Trim(w, ".,!?;:") == term {
				score++
			}
		}
	}
	return score
}

func sortedIDs(docs map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseBody(body json.RawMessage) map[string]any {
	var fields map[string]any
	_ = json.Unmarshal(body, &fields)
	return fields
}

func vectorField(fields map[string]any, name string) []float32 {
	raw, ok := fields[name].([]any)
	if !ok {
		return nil
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil
		}
		out[i] = float32(f)
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// evaluate runs the query tree against one parsed document.
func evaluate(q engine.Query, fields map[string]any) bool {
	if q == nil {
		return true
	}
	switch n := q.(type) {
	case *engine.MatchAll:
		return true

	case *engine.Term:
		return termMatches(fields[n.Field], n.Value)

	case *engine.Terms:
		doc := fields[n.Field]
		if arr, ok := doc.([]any); ok {
			for _, elem := range arr {
				for _, v := range n.Values {
					if termMatches(elem, v) {
						return true
					}
				}
			}
			return false
		}
		for _, v := range n.Values {
			if termMatches(doc, v) {
				return true
			}
		}
		return false

	case *engine.Range:
		doc, ok := numeric(fields[n.Field])
		if !ok {
			if t, tok := dateValue(fields[n.Field]); tok {
				return dateInRange(t, n)
			}
			return false
		}
		if n.GT != nil {
			if b, ok := numeric(n.GT); !ok || !(doc > b) {
				return false
			}
		}
		if n.GTE != nil {
			if b, ok := numeric(n.GTE); !ok || !(doc >= b) {
				return false
			}
		}
		if n.LT != nil {
			if b, ok := numeric(n.LT); !ok || !(doc < b) {
				return false
			}
		}
		if n.LTE != nil {
			if b, ok := numeric(n.LTE); !ok || !(doc <= b) {
				return false
			}
		}
		return true

	case *engine.Exists:
		v, ok := fields[n.Field]
		return ok && v != nil

	case *engine.Match:
		text, _ := fields[n.Field].(string)
		return matchScore(strings.ToLower(text), strings.Fields(strings.ToLower(n.Text))) > 0

	case *engine.Bool:
		for _, sub := range n.Must {
			if !evaluate(sub, fields) {
				return false
			}
		}
		for _, sub := range n.MustNot {
			if evaluate(sub, fields) {
				return false
			}
		}
		if len(n.Should) > 0 {
			matched := false
			for _, sub := range n.Should {
				if evaluate(sub, fields) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	}
	return false
}

func termMatches(doc, want any) bool {
	if doc == nil {
		return false
	}
	switch w := want.(type) {
	case string:
		d, ok := doc.(string)
		return ok && d == w
	case bool:
		d, ok := doc.(bool)
		return ok && d == w
	case time.Time:
		d, ok := dateValue(doc)
		return ok && d.Equal(w)
	}
	dn, dok := numeric(doc)
	wn, wok := numeric(want)
	return dok && wok && dn == wn
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func dateValue(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, d)
		return t, err == nil
	}
	return time.Time{}, false
}

func dateInRange(t time.Time, r *engine.Range) bool {
	check := func(bound any, cmp func(time.Time) bool) bool {
		if bound == nil {
			return true
		}
		b, ok := bound.(time.Time)
		return ok && cmp(b)
	}
	return check(r.GT, func(b time.Time) bool { return t.After(b) }) &&
		check(r.GTE, func(b time.Time) bool { return !t.Before(b) }) &&
		check(r.LT, func(b time.Time) bool { return t.Before(b) }) &&
		check(r.LTE, func(b time.Time) bool { return !t.After(b) })
}
