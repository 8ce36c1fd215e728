package redisearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

// --- store.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsRedisErr(t *testing.T) {
	tests := []struct {
		err  error
		sub  string
		want bool
	}{
		{mock.Result(mock.RedisError("Index Already Exists")).Error(), "index already exists", true},
		{mock.Result(mock.RedisError("UNKNOWN INDEX NAME")).Error(), "unknown index name", true},
		{mock.Result(mock.RedisError("no such index")).Error(), "unknown index name", false},
		{errors.New("index already exists"), "index already exists", false},
		{nil, "index already exists", false},
	}
	for _, tc := range tests {
		got := isRedisErr(tc.err, tc.sub)
		if got != tc.want {
			t.Errorf("isRedisErr(%v, %q) = %v, want %v", tc.err, tc.sub, got, tc.want)
		}
	}
}

// --- index.go tests ---

func hotelSchema() *engine.IndexSchema {
	return &engine.IndexSchema{Fields: []engine.FieldMapping{
		{Name: "hotel_name", Type: engine.MappingKeyword},
		{Name: "description", Type: engine.MappingText},
		{Name: "rating", Type: engine.MappingDouble},
		{Name: "tags", Type: engine.MappingKeyword, IsArray: true},
		{Name: "internal_note", Type: engine.MappingStored},
		{Name: "embedding", Type: engine.MappingDenseVector,
			Dims: 3, Similarity: "cosine", IndexKind: "int8_hnsw"},
	}}
}

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE" && cmd[1] == "hotels"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), "hotels", hotelSchema()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := ""
	for _, a := range got {
		joined += a + " "
	}
	for _, want := range []string{
		"ON JSON",
		"PREFIX 1 " + DefaultKeyPrefix + "hotels:",
		"$.hotel_name AS hotel_name TAG",
		"$.description AS description TEXT",
		"$.rating AS rating NUMERIC",
		"$.tags[*] AS tags TAG",
		"$.embedding AS embedding VECTOR HNSW",
		"DIM 3",
		"DISTANCE_METRIC COSINE",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FT.CREATE args missing %q in %q", want, joined)
		}
	}
	// Stored-only fields carry no index.
	if strings.Contains(joined, "internal_note") {
		t.Errorf("stored field leaked into FT.CREATE args: %q", joined)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), "hotels", hotelSchema())
	if !errors.Is(err, engine.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_QuantizedKindLowersToHNSW(t *testing.T) {
	for _, kind := range []string{"hnsw", "int8_hnsw", "int4_hnsw", "bbq_hnsw"} {
		algo, err := lowerIndexKind(kind)
		if err != nil || algo != "HNSW" {
			t.Errorf("lowerIndexKind(%q) = %q, %v", kind, algo, err)
		}
	}
	for _, kind := range []string{"flat", "int8_flat", "bbq_flat"} {
		algo, err := lowerIndexKind(kind)
		if err != nil || algo != "FLAT" {
			t.Errorf("lowerIndexKind(%q) = %q, %v", kind, algo, err)
		}
	}
	if _, err := lowerIndexKind("ivf"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDeleteIndex_MissingIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "hotels", "DD")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	if err := s.DeleteIndex(context.Background(), "hotels"); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "hotels")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	ok, err := s.IndexExists(context.Background(), "hotels")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false for unknown index")
	}
}

// --- documents.go tests ---

func TestGetDocument_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", DefaultKeyPrefix+"hotels:h1")).
		Return(mock.Result(mock.RedisString(`{"hotel_name":"Grand"}`)))

	s := NewStoreForTest(c)
	doc, err := s.GetDocument(context.Background(), "hotels", "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "h1" || string(doc.Body) != `{"hotel_name":"Grand"}` {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET"
		})).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.GetDocument(context.Background(), "hotels", "missing")
	if !errors.Is(err, engine.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetDocuments_MissingYieldEmptyBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString(`{"a":1}`)),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	docs, err := s.GetDocuments(context.Background(), "hotels", []string{"h1", "h2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "h1" || string(docs[0].Body) != `{"a":1}` {
		t.Errorf("unexpected first document %+v", docs[0])
	}
	if docs[1].ID != "h2" || len(docs[1].Body) != 0 {
		t.Errorf("missing id should yield empty body, got %+v", docs[1])
	}
}

func TestIndexDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"JSON.SET", DefaultKeyPrefix+"hotels:h1", "$", `{"hotel_name":"Grand"}`,
		)).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	err := s.IndexDocument(context.Background(), "hotels", engine.Document{
		ID: "h1", Body: []byte(`{"hotel_name":"Grand"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexDocuments_Pipelined(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	s := NewStoreForTest(c)
	err := s.IndexDocuments(context.Background(), "hotels", []engine.Document{
		{ID: "h1", Body: []byte(`{}`)},
		{ID: "h2", Body: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteDocument_MissingIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", DefaultKeyPrefix+"hotels:h1")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	if err := s.DeleteDocument(context.Background(), "hotels", "h1"); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

// --- search.go tests ---

func TestSearch_ParsesHits(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "hotels"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString(DefaultKeyPrefix+"hotels:h1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.25"),
				mock.RedisString("$"), mock.RedisString(`{"hotel_name":"Grand"}`),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), "hotels", &engine.SearchRequest{
		Vector: engine.VectorQuery{Field: "embedding", Vector: []float32{1, 0, 0}, K: 10},
		Size:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Hits) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	hit := res.Hits[0]
	if hit.ID != "h1" {
		t.Errorf("key prefix not stripped: %q", hit.ID)
	}
	if hit.Score != 0.75 {
		t.Errorf("expected similarity 0.75 from distance 0.25, got %v", hit.Score)
	}
	if string(hit.Body) != `{"hotel_name":"Grand"}` {
		t.Errorf("unexpected body %s", hit.Body)
	}
}

func TestSearch_ScoreFollowsSimilarityFunction(t *testing.T) {
	tests := []struct {
		similarity string
		distance   string
		want       float64
	}{
		{"cosine", "0.25", 0.75},
		{"cosine", "1.5", 0}, // clamped
		{"l2_norm", "3", 0.25},
		{"dot_product", "-0.5", 1.5},
		{"max_inner_product", "0.5", 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.similarity, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
					return cmd[0] == "FT.SEARCH"
				})).
				Return(mock.Result(mock.RedisArray(
					mock.RedisInt64(1),
					mock.RedisString(DefaultKeyPrefix+"hotels:h1"),
					mock.RedisArray(
						mock.RedisString("__vector_score"), mock.RedisString(tc.distance),
						mock.RedisString("$"), mock.RedisString(`{}`),
					),
				)))

			s := NewStoreForTest(c)
			res, err := s.Search(context.Background(), "hotels", &engine.SearchRequest{
				Vector: engine.VectorQuery{
					Field: "embedding", Vector: []float32{1, 0, 0}, K: 10,
					Similarity: tc.similarity,
				},
				Size: 10,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := res.Hits[0].Score; got != tc.want {
				t.Errorf("score for %s distance %s = %v, want %v",
					tc.similarity, tc.distance, got, tc.want)
			}
		})
	}
}

func TestHybridSearch_FusesLegs(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	knnReply := mock.Result(mock.RedisArray(
		mock.RedisInt64(2),
		mock.RedisString(DefaultKeyPrefix+"hotels:h1"),
		mock.RedisArray(
			mock.RedisString("__vector_score"), mock.RedisString("0.1"),
			mock.RedisString("$"), mock.RedisString(`{"n":"h1"}`),
		),
		mock.RedisString(DefaultKeyPrefix+"hotels:h2"),
		mock.RedisArray(
			mock.RedisString("__vector_score"), mock.RedisString("0.2"),
			mock.RedisString("$"), mock.RedisString(`{"n":"h2"}`),
		),
	))
	textReply := mock.Result(mock.RedisArray(
		mock.RedisInt64(2),
		mock.RedisString(DefaultKeyPrefix+"hotels:h2"),
		mock.RedisString("3.5"),
		mock.RedisArray(
			mock.RedisString("$"), mock.RedisString(`{"n":"h2"}`),
		),
		mock.RedisString(DefaultKeyPrefix+"hotels:h3"),
		mock.RedisString("1.5"),
		mock.RedisArray(
			mock.RedisString("$"), mock.RedisString(`{"n":"h3"}`),
		),
	))

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{knnReply, textReply})

	s := NewStoreForTest(c)
	res, err := s.HybridSearch(context.Background(), "hotels", &engine.HybridRequest{
		Vector:  engine.VectorQuery{Field: "embedding", Vector: []float32{1, 0, 0}, K: 10},
		Keyword: engine.Match{Field: "description", Text: "grand"},
		Size:    10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Hits) != 3 {
		t.Fatalf("expected 3 fused hits, got %d", len(res.Hits))
	}
	// h2 appears in both legs, so it must fuse to the top.
	if res.Hits[0].ID != "h2" {
		t.Errorf("expected h2 first, got %q", res.Hits[0].ID)
	}
}

func TestFuseRRF_ScoresAndOrder(t *testing.T) {
	knn := []engine.Hit{{ID: "a", Body: []byte(`{"v":1}`)}, {ID: "b"}}
	text := []engine.Hit{{ID: "b"}, {ID: "c"}}

	fused := fuseRRF(knn, text, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Errorf("expected document in both legs first, got %q", fused[0].ID)
	}
	wantB := 1.0/62.0 + 1.0/61.0
	if diff := fused[0].Score - wantB; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("unexpected fused score %v, want %v", fused[0].Score, wantB)
	}
}

func TestFuseRRF_KeepsKNNBody(t *testing.T) {
	knn := []engine.Hit{{ID: "a", Body: []byte(`{"knn":true}`)}}
	text := []engine.Hit{{ID: "a", Body: []byte(`{"text":true}`)}}

	fused := fuseRRF(knn, text, 60)
	if string(fused[0].Body) != `{"knn":true}` {
		t.Errorf("expected KNN body kept, got %s", fused[0].Body)
	}
}
