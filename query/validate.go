package query

import (
	"fmt"

	"github.com/baxromumarov/seqflow"
)

// Catalog reports which source names exist. [*Provider] implements it.
type Catalog interface {
	Has(name string) bool
}

// Validate checks plan without running anything. It walks the whole tree
// and returns a [*seqflow.ValidationError] listing every issue found, each
// prefixed with the path of the offending node. A nil catalog skips the
// source name lookup.
func Validate(plan Plan, catalog Catalog) error {
	v := &validator{catalog: catalog}
	v.validatePlan("plan", plan, true)
	if len(v.issues) == 0 {
		return nil
	}
	return seqflow.NewValidationError("query.Validate", v.issues...)
}

// validator accumulates issues during traversal.
type validator struct {
	catalog Catalog
	issues  []string
}

func (v *validator) addIssue(path, format string, args ...any) {
	v.issues = append(v.issues, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) validatePlan(path string, p Plan, root bool) {
	switch n := p.(type) {
	case nil:
		v.addIssue(path, "missing plan node")
	case Source:
		v.validateSource(path, n)
	case *Source:
		v.validateSource(path, *n)
	case Where:
		v.validateWhere(path, n)
	case *Where:
		v.validateWhere(path, *n)
	case Select:
		v.validateSelect(path, n)
	case *Select:
		v.validateSelect(path, *n)
	case Take:
		v.validateCount(path+".take", n.N)
		v.validatePlan(path+".take", n.Input, false)
	case *Take:
		v.validatePlan(path, *n, root)
	case Skip:
		v.validateCount(path+".skip", n.N)
		v.validatePlan(path+".skip", n.Input, false)
	case *Skip:
		v.validatePlan(path, *n, root)
	case Concat:
		v.validateConcat(path, n)
	case *Concat:
		v.validateConcat(path, *n)
	case Join:
		v.validateJoin(path, n)
	case *Join:
		v.validateJoin(path, *n)
	case Aggregate:
		v.validateAggregate(path, n, root)
	case *Aggregate:
		v.validateAggregate(path, *n, root)
	default:
		v.addIssue(path, "unsupported plan node %T", p)
	}
}

func (v *validator) validateSource(path string, s Source) {
	path += ".source"
	if s.Name == "" {
		v.addIssue(path, "source name is empty")
		return
	}
	if v.catalog != nil && !v.catalog.Has(s.Name) {
		v.addIssue(path, "unknown source %q", s.Name)
	}
}

func (v *validator) validateWhere(path string, w Where) {
	path += ".where"
	v.validatePredicate(path+".pred", w.Pred)
	v.validatePlan(path, w.Input, false)
}

func (v *validator) validateSelect(path string, s Select) {
	path += ".select"
	switch {
	case len(s.Fields) == 0 && s.Fn == nil:
		v.addIssue(path, "needs fields or a function")
	case len(s.Fields) > 0 && s.Fn != nil:
		v.addIssue(path, "fields and function are mutually exclusive")
	}
	for i, f := range s.Fields {
		if f == "" {
			v.addIssue(path, "field %d is empty", i)
		}
	}
	v.validatePlan(path, s.Input, false)
}

func (v *validator) validateCount(path string, n int) {
	if n < 0 {
		v.addIssue(path, "count must be non-negative, got %d", n)
	}
}

func (v *validator) validateConcat(path string, c Concat) {
	path += ".concat"
	if len(c.Inputs) == 0 {
		v.addIssue(path, "needs at least one input")
	}
	for i, in := range c.Inputs {
		v.validatePlan(fmt.Sprintf("%s[%d]", path, i), in, false)
	}
}

func (v *validator) validateJoin(path string, j Join) {
	path += ".join"
	if j.LeftKey == "" {
		v.addIssue(path, "left key is empty")
	}
	if j.RightKey == "" {
		v.addIssue(path, "right key is empty")
	}
	v.validatePlan(path+".left", j.Left, false)
	v.validatePlan(path+".right", j.Right, false)
}

func (v *validator) validateAggregate(path string, a Aggregate, root bool) {
	path += ".aggregate"
	if !root {
		v.addIssue(path, "aggregate must be the outermost operation")
	}
	if !a.Op.valid() {
		v.addIssue(path, "unknown aggregate %q", a.Op)
	}
	v.validatePlan(path, a.Input, false)
}

func (v *validator) validatePredicate(path string, p Predicate) {
	switch n := p.(type) {
	case nil:
		v.addIssue(path, "missing predicate")
	case Compare:
		v.validateCompare(path, n)
	case *Compare:
		v.validateCompare(path, *n)
	case And:
		v.validateOperands(path+".and", n)
	case Or:
		v.validateOperands(path+".or", n)
	case Not:
		v.validatePredicate(path+".not", n.Pred)
	case *Not:
		v.validatePredicate(path+".not", n.Pred)
	case PredicateFunc:
		if n.Fn == nil {
			v.addIssue(path, "predicate function is nil")
		}
	case *PredicateFunc:
		v.validatePredicate(path, *n)
	default:
		v.addIssue(path, "unsupported predicate %T", p)
	}
}

func (v *validator) validateCompare(path string, c Compare) {
	if !c.Op.valid() {
		v.addIssue(path, "unknown comparison %q", c.Op)
	}
	if c.Op == Contains {
		if _, ok := c.Value.(string); !ok {
			v.addIssue(path, "contains needs a string value, got %T", c.Value)
		}
	}
}

func (v *validator) validateOperands(path string, ps []Predicate) {
	if len(ps) == 0 {
		v.addIssue(path, "needs at least one operand")
	}
	for i, p := range ps {
		v.validatePredicate(fmt.Sprintf("%s[%d]", path, i), p)
	}
}
