package query

// Plan is a node of a declarative query plan.
//
// This is a sealed interface: only types in this package implement it, so
// the validator, compiler and explainer can switch over every node kind.
//
// Plan types:
//   - Source: a named source registered with the [Provider]
//   - Where: keep the items matching a predicate
//   - Select: project fields or apply a function
//   - Take, Skip: limit and offset
//   - Concat: the items of every input, one input after the other
//   - Join: inner equi-join of two inputs
//   - Aggregate: fold the input into one scalar; only valid at the root
type Plan interface {
	planNode()
}

// Source reads the provider source registered under Name.
type Source struct {
	Name string
}

func (Source) planNode() {}

// Where keeps the items of Input for which Pred holds.
type Where struct {
	Input Plan
	Pred  Predicate
}

func (Where) planNode() {}

// Select projects every item of Input.
//
// With Fields set, each item becomes a record holding just those fields,
// keyed by the field path as written. With Fn set, each item is replaced by
// Fn's result; Label names the function in [Explain] output. Exactly one of
// Fields and Fn must be set.
type Select struct {
	Input  Plan
	Fields []string
	Fn     func(item any) (any, error)
	Label  string
}

func (Select) planNode() {}

// Take keeps at most N items of Input.
type Take struct {
	Input Plan
	N     int
}

func (Take) planNode() {}

// Skip drops the first N items of Input.
type Skip struct {
	Input Plan
	N     int
}

func (Skip) planNode() {}

// Concat yields the items of every input in order.
type Concat struct {
	Inputs []Plan
}

func (Concat) planNode() {}

// Join pairs every item of Left with every item of Right whose key fields
// are equal. Each result is a record {"left": l, "right": r}, in the order
// of Left and then of Right. Items whose key is missing never match.
type Join struct {
	Left     Plan
	Right    Plan
	LeftKey  string
	RightKey string
}

func (Join) planNode() {}

// AggOp names an aggregate function.
type AggOp string

const (
	Count   AggOp = "count"
	Sum     AggOp = "sum"
	Average AggOp = "average"
	Min     AggOp = "min"
	Max     AggOp = "max"
)

func (op AggOp) valid() bool {
	switch op {
	case Count, Sum, Average, Min, Max:
		return true
	}
	return false
}

// Aggregate folds Input into a single scalar. Field selects the numeric
// value of each item; empty means the item itself. Count ignores Field.
type Aggregate struct {
	Input Plan
	Op    AggOp
	Field string
}

func (Aggregate) planNode() {}

// Predicate is a filter condition over one item.
//
// This is a sealed interface: only types in this package implement it.
//
// Predicate types:
//   - Compare: field <op> literal
//   - And, Or: every / any of the operands
//   - Not: negation
//   - PredicateFunc: an arbitrary Go function
type Predicate interface {
	predicateNode()
}

// CmpOp is a comparison operator.
type CmpOp string

const (
	Eq       CmpOp = "eq"
	Ne       CmpOp = "ne"
	Lt       CmpOp = "lt"
	Le       CmpOp = "le"
	Gt       CmpOp = "gt"
	Ge       CmpOp = "ge"
	Contains CmpOp = "contains"
)

func (op CmpOp) valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge, Contains:
		return true
	}
	return false
}

// Compare compares the value at Field with Value. Field is a dot separated
// path into nested records; empty means the item itself. Numbers compare
// by value regardless of their Go type, and strings compare after Unicode
// NFC normalisation. A missing field never matches.
type Compare struct {
	Field string
	Op    CmpOp
	Value any
}

func (Compare) predicateNode() {}

// And holds when every operand holds.
type And []Predicate

func (And) predicateNode() {}

// Or holds when at least one operand holds.
type Or []Predicate

func (Or) predicateNode() {}

// Not negates Pred.
type Not struct {
	Pred Predicate
}

func (Not) predicateNode() {}

// PredicateFunc is a predicate implemented in Go. Label names it in
// [Explain] output.
type PredicateFunc struct {
	Label string
	Fn    func(item any) bool
}

func (PredicateFunc) predicateNode() {}
