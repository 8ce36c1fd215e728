package engine

// Query is a node in the engine's native query tree.
type Query interface {
	isQuery()
}

// MatchAll matches every document.
type MatchAll struct{}

// Term matches documents whose field equals the value exactly.
type Term struct {
	Field string
	Value any
}

// Terms matches documents whose field equals any of the values, or whose
// array field contains any of them.
type Terms struct {
	Field  string
	Values []any
}

// Range matches documents whose field falls inside the given bounds. Unset
// bounds (nil) are open.
type Range struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
}

// Exists matches documents where the field is present and non-null.
type Exists struct {
	Field string
}

// Match runs a full-text (analyzed) match on the field.
type Match struct {
	Field string
	Text  string
}

// Bool composes sub-queries: all of Must, at least one of Should, none of
// MustNot.
type Bool struct {
	Must    []Query
	Should  []Query
	MustNot []Query
}

func (*MatchAll) isQuery() {}
func (*Term) isQuery()     {}
func (*Terms) isQuery()    {}
func (*Range) isQuery()    {}
func (*Exists) isQuery()   {}
func (*Match) isQuery()    {}
func (*Bool) isQuery()     {}
