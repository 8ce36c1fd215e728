package vecbridge

import (
	"errors"

	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// ErrRecordNotFound is returned by Get when no record exists for the key.
var ErrRecordNotFound = errors.New("vecbridge: record not found")

// SchemaError signals a malformed or ambiguous collection model, or a filter
// that references a property the model does not know.
type SchemaError = vserr.SchemaError

// UnsupportedTypeError signals a key, data, or vector property whose declared
// type is outside the supported set.
type UnsupportedTypeError = vserr.UnsupportedTypeError

// UnsupportedConfigurationError signals a property setting, such as an
// (index kind, similarity) pairing, with no backing-store equivalent.
type UnsupportedConfigurationError = vserr.UnsupportedConfigurationError

// UnsupportedExpressionError signals a filter expression node or shape the
// translator does not recognize.
type UnsupportedExpressionError = vserr.UnsupportedExpressionError

// TypeMismatchError signals a filter value whose type cannot be converted to
// the bound property's declared type.
type TypeMismatchError = vserr.TypeMismatchError

// AmbiguousPropertyError signals that a search needed to default to "the one"
// vector or full-text property but zero or multiple candidates exist.
type AmbiguousPropertyError = vserr.AmbiguousPropertyError

// NoEmbeddingGeneratorError signals a non-vector search input on a vector
// property with no generator configured.
type NoEmbeddingGeneratorError = vserr.NoEmbeddingGeneratorError

// IncompatibleGeneratorError signals a generator that cannot accept the
// search input's type.
type IncompatibleGeneratorError = vserr.IncompatibleGeneratorError

// UnsupportedCombinationError signals a request whose options contradict the
// collection model.
type UnsupportedCombinationError = vserr.UnsupportedCombinationError

// StorageOperationError wraps a backing-store failure with the collection and
// operation names attached. Unwrap exposes the transport error.
type StorageOperationError = vserr.StorageOperationError
