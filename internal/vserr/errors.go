// Package vserr defines the error taxonomy shared by all vecbridge layers.
//
// Schema, type, and translation errors are structural: they indicate a
// programming error in the caller's model or filter and are surfaced
// synchronously, never retried. Storage failures are wrapped in
// StorageOperationError with the collection and operation attached.
package vserr

import (
	"fmt"
	"strings"
)

// SchemaError signals a malformed or ambiguous collection model, or a filter
// that references a property the model does not know.
type SchemaError struct {
	Property string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Property == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: property %q: %s", e.Property, e.Reason)
}

// UnsupportedTypeError signals a key, data, or vector property whose declared
// type is outside the supported set.
type UnsupportedTypeError struct {
	Property  string
	Type      string
	Supported []string
}

func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("unsupported type %s for property %q", e.Type, e.Property)
	if len(e.Supported) > 0 {
		msg += " (supported: " + strings.Join(e.Supported, ", ") + ")"
	}
	return msg
}

// UnsupportedConfigurationError signals an (index kind, similarity) pairing
// or another property setting with no backing-store equivalent.
type UnsupportedConfigurationError struct {
	Property string
	Setting  string
	Value    string
}

func (e *UnsupportedConfigurationError) Error() string {
	return fmt.Sprintf("unsupported configuration for property %q: %s=%s", e.Property, e.Setting, e.Value)
}

// UnsupportedExpressionError signals a filter expression node or shape the
// translator does not recognize.
type UnsupportedExpressionError struct {
	Kind   string
	Reason string
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported filter expression node %s", e.Kind)
	}
	return fmt.Sprintf("unsupported filter expression node %s: %s", e.Kind, e.Reason)
}

// TypeMismatchError signals a filter value whose type cannot be converted to
// the bound property's declared type.
type TypeMismatchError struct {
	Property string
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on property %q: expected %s, got %s", e.Property, e.Expected, e.Actual)
}

// AmbiguousPropertyError signals that a search call needed to default to
// "the one" vector or full-text property but zero or multiple candidates exist.
type AmbiguousPropertyError struct {
	Kind       string // "vector" or "full-text"
	Candidates int
}

func (e *AmbiguousPropertyError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("no %s property defined on the collection", e.Kind)
	}
	return fmt.Sprintf("%d %s properties defined, name one explicitly", e.Candidates, e.Kind)
}

// NoEmbeddingGeneratorError signals a non-vector search input on a vector
// property with no generator configured.
type NoEmbeddingGeneratorError struct {
	Property  string
	InputType string
}

func (e *NoEmbeddingGeneratorError) Error() string {
	return fmt.Sprintf("property %q has no embedding generator for input type %s", e.Property, e.InputType)
}

// IncompatibleGeneratorError signals a generator that cannot accept the
// search input's type.
type IncompatibleGeneratorError struct {
	Property  string
	InputType string
}

func (e *IncompatibleGeneratorError) Error() string {
	return fmt.Sprintf("embedding generator on property %q does not accept input type %s", e.Property, e.InputType)
}

// UnsupportedCombinationError signals a request whose options contradict the
// collection model (e.g. returning vectors that are generator-derived).
type UnsupportedCombinationError struct {
	Reason string
}

func (e *UnsupportedCombinationError) Error() string {
	return "unsupported combination: " + e.Reason
}

// StorageOperationError wraps a backing-store failure with the collection and
// operation names for diagnostics.
type StorageOperationError struct {
	Collection string
	Operation  string
	Err        error
}

func (e *StorageOperationError) Error() string {
	return fmt.Sprintf("%s on collection %q: %v", e.Operation, e.Collection, e.Err)
}

func (e *StorageOperationError) Unwrap() error { return e.Err }
