// Package filter defines the expression tree used to filter collection
// records. Expressions are plain data: building one performs no validation
// against a collection model; binding and type checks happen at translation
// time, where unresolvable property names are a hard error.
package filter

// Expr is a node in a filter expression tree.
type Expr interface {
	isExpr()
}

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// Comparison compares a record property against a constant.
// A nil Value with OpEq matches records where the property is absent;
// with OpNe it matches records where the property is present.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

// Conjunction is the logical AND of its operands.
type Conjunction struct {
	Operands []Expr
}

// Disjunction is the logical OR of its operands.
type Disjunction struct {
	Operands []Expr
}

// Negation is the logical NOT of its operand.
type Negation struct {
	Operand Expr
}

// Contains tests whether an array-valued record property contains a literal.
type Contains struct {
	Field string
	Value any
}

// In tests whether a record property's value is one of the given literals.
type In struct {
	Field  string
	Values []any
}

// Property is a bare boolean property reference, shorthand for Eq(field, true).
type Property struct {
	Field string
}

func (*Comparison) isExpr()  {}
func (*Conjunction) isExpr() {}
func (*Disjunction) isExpr() {}
func (*Negation) isExpr()    {}
func (*Contains) isExpr()    {}
func (*In) isExpr()          {}
func (*Property) isExpr()    {}

// Eq matches records whose property equals value.
func Eq(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpEq, Value: value}
}

// Ne matches records whose property does not equal value.
func Ne(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpNe, Value: value}
}

// Gt matches records whose property is greater than value.
func Gt(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpGt, Value: value}
}

// Gte matches records whose property is greater than or equal to value.
func Gte(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpGte, Value: value}
}

// Lt matches records whose property is less than value.
func Lt(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpLt, Value: value}
}

// Lte matches records whose property is less than or equal to value.
func Lte(field string, value any) *Comparison {
	return &Comparison{Field: field, Op: OpLte, Value: value}
}

// And combines expressions with logical AND.
func And(exprs ...Expr) *Conjunction {
	return &Conjunction{Operands: exprs}
}

// Or combines expressions with logical OR.
func Or(exprs ...Expr) *Disjunction {
	return &Disjunction{Operands: exprs}
}

// Not negates an expression.
func Not(expr Expr) *Negation {
	return &Negation{Operand: expr}
}

// Has matches records whose array-valued property contains value.
func Has(field string, value any) *Contains {
	return &Contains{Field: field, Value: value}
}

// AnyOf matches records whose property value is one of values.
func AnyOf(field string, values ...any) *In {
	return &In{Field: field, Values: values}
}

// IsTrue matches records whose boolean property is true.
func IsTrue(field string) *Property {
	return &Property{Field: field}
}
