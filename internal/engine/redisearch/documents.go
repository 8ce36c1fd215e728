package redisearch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecbridge/internal/engine"
	"github.com/kailas-cloud/vecbridge/internal/metrics"
)

// GetDocument retrieves one document. A missing id yields
// engine.ErrDocumentNotFound.
func (s *Store) GetDocument(ctx context.Context, index, id string) (doc engine.Document, err error) {
	defer observe("get_document", time.Now(), &err)

	cmd := s.b().Arbitrary("JSON.GET").Keys(s.docKey(index, id)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			err = engine.ErrDocumentNotFound
			return engine.Document{}, err
		}
		err = &engine.Error{Op: engine.OpGetDocument, Index: index, Err: err}
		return engine.Document{}, err
	}
	if raw == "" {
		err = engine.ErrDocumentNotFound
		return engine.Document{}, err
	}
	return engine.Document{ID: id, Body: []byte(raw)}, nil
}

// GetDocuments fetches all ids in one pipelined round trip. Missing ids yield
// a Document with empty Body at the matching position.
func (s *Store) GetDocuments(ctx context.Context, index string, ids []string) (docs []engine.Document, err error) {
	defer observe("get_documents", time.Now(), &err)

	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(s.docKey(index, id)).Build()
	}

	docs = make([]engine.Document, len(ids))
	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		docs[i].ID = ids[i]
		raw, rerr := res.ToString()
		if rerr != nil {
			if rueidis.IsRedisNil(rerr) {
				continue
			}
			err = &engine.Error{Op: engine.OpGetDocument, Index: index,
				Err: fmt.Errorf("id %s: %w", ids[i], rerr)}
			return nil, err
		}
		docs[i].Body = []byte(raw)
	}
	return docs, nil
}

// IndexDocument writes one document as JSON.
func (s *Store) IndexDocument(ctx context.Context, index string, doc engine.Document) (err error) {
	defer observe("index_document", time.Now(), &err)

	cmd := s.b().Arbitrary("JSON.SET").
		Keys(s.docKey(index, doc.ID)).
		Args("$", string(doc.Body)).
		Build()
	if err = s.do(ctx, cmd).Error(); err != nil {
		err = &engine.Error{Op: engine.OpIndexDocument, Index: index, Err: err}
		return err
	}
	metrics.StoreDocumentsTotal.WithLabelValues("index").Inc()
	return nil
}

// IndexDocuments writes all documents in one pipelined round trip. On a
// partial failure the documents already written stay committed.
func (s *Store) IndexDocuments(ctx context.Context, index string, docs []engine.Document) (err error) {
	defer observe("index_documents", time.Now(), &err)

	if len(docs) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(docs))
	for i, doc := range docs {
		cmds[i] = s.b().Arbitrary("JSON.SET").
			Keys(s.docKey(index, doc.ID)).
			Args("$", string(doc.Body)).
			Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if rerr := res.Error(); rerr != nil {
			err = &engine.Error{Op: engine.OpIndexDocument, Index: index,
				Err: fmt.Errorf("id %s: %w", docs[i].ID, rerr)}
			return err
		}
	}
	metrics.StoreDocumentsTotal.WithLabelValues("index").Add(float64(len(docs)))
	return nil
}

// DeleteDocument removes one document. Deleting a missing id is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, index, id string) (err error) {
	defer observe("delete_document", time.Now(), &err)

	cmd := s.b().Del().Key(s.docKey(index, id)).Build()
	if err = s.do(ctx, cmd).Error(); err != nil {
		err = &engine.Error{Op: engine.OpDeleteDocument, Index: index, Err: err}
		return err
	}
	metrics.StoreDocumentsTotal.WithLabelValues("delete").Inc()
	return nil
}

// DeleteDocuments removes all ids in one pipelined round trip; missing ids
// are skipped silently.
func (s *Store) DeleteDocuments(ctx context.Context, index string, ids []string) (err error) {
	defer observe("delete_documents", time.Now(), &err)

	if len(ids) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Del().Key(s.docKey(index, id)).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if rerr := res.Error(); rerr != nil {
			err = &engine.Error{Op: engine.OpDeleteDocument, Index: index,
				Err: fmt.Errorf("id %s: %w", ids[i], rerr)}
			return err
		}
	}
	metrics.StoreDocumentsTotal.WithLabelValues("delete").Add(float64(len(ids)))
	return nil
}
