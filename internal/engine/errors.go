package engine

import "errors"

// Sentinel errors for store operations.
var (
	ErrDocumentNotFound = errors.New("engine: document not found")
	ErrIndexNotFound    = errors.New("engine: index not found")
	ErrIndexExists      = errors.New("engine: index already exists")
)

// Operation names attached to transport errors.
const (
	OpCreateIndex    = "create index"
	OpDeleteIndex    = "delete index"
	OpIndexExists    = "index exists"
	OpListIndices    = "list indices"
	OpGetDocument    = "get document"
	OpIndexDocument  = "index document"
	OpDeleteDocument = "delete document"
	OpSearch         = "search"
	OpHybridSearch   = "hybrid search"
)

// Error wraps a transport failure with the operation and index names.
type Error struct {
	Op    string
	Index string
	Err   error
}

func (e *Error) Error() string {
	if e.Index == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Index + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
