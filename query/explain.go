package query

import (
	"fmt"
	"strings"
)

// Explain renders plan as an indented tree, root first, one node per line.
//
//	take 10
//	  where price gt 3
//	    source orders
func Explain(plan Plan) string {
	var b strings.Builder
	explain(&b, plan, 0)
	return b.String()
}

func explain(b *strings.Builder, p Plan, depth int) {
	line := func(format string, args ...any) {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(b, format, args...)
		b.WriteByte('\n')
	}

	switch n := p.(type) {
	case nil:
		line("<nil>")
	case Source:
		line("source %s", n.Name)
	case *Source:
		explain(b, *n, depth)
	case Where:
		line("where %s", FormatPredicate(n.Pred))
		explain(b, n.Input, depth+1)
	case *Where:
		explain(b, *n, depth)
	case Select:
		if n.Fn != nil {
			line("select %s", labelOr(n.Label, "func"))
		} else {
			line("select %s", strings.Join(n.Fields, ", "))
		}
		explain(b, n.Input, depth+1)
	case *Select:
		explain(b, *n, depth)
	case Take:
		line("take %d", n.N)
		explain(b, n.Input, depth+1)
	case *Take:
		explain(b, *n, depth)
	case Skip:
		line("skip %d", n.N)
		explain(b, n.Input, depth+1)
	case *Skip:
		explain(b, *n, depth)
	case Concat:
		line("concat")
		for _, in := range n.Inputs {
			explain(b, in, depth+1)
		}
	case *Concat:
		explain(b, *n, depth)
	case Join:
		line("join left.%s = right.%s", n.LeftKey, n.RightKey)
		explain(b, n.Left, depth+1)
		explain(b, n.Right, depth+1)
	case *Join:
		explain(b, *n, depth)
	case Aggregate:
		line("aggregate %s(%s)", n.Op, fieldName(n.Field))
		explain(b, n.Input, depth+1)
	case *Aggregate:
		explain(b, *n, depth)
	default:
		line("<%T>", p)
	}
}

// FormatPredicate renders a predicate on one line.
func FormatPredicate(p Predicate) string {
	switch n := p.(type) {
	case nil:
		return "<nil>"
	case Compare:
		return fmt.Sprintf("%s %s %s", fieldName(n.Field), n.Op, formatValue(n.Value))
	case *Compare:
		return FormatPredicate(*n)
	case And:
		return joinPredicates(n, " and ")
	case Or:
		return joinPredicates(n, " or ")
	case Not:
		return "not " + group(n.Pred)
	case *Not:
		return FormatPredicate(*n)
	case PredicateFunc:
		return labelOr(n.Label, "func")
	case *PredicateFunc:
		return FormatPredicate(*n)
	default:
		return fmt.Sprintf("<%T>", p)
	}
}

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = group(p)
	}
	return strings.Join(parts, sep)
}

// group parenthesises compound operands.
func group(p Predicate) string {
	switch p.(type) {
	case And, Or:
		return "(" + FormatPredicate(p) + ")"
	}
	return FormatPredicate(p)
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func fieldName(f string) string {
	if f == "" {
		return "it"
	}
	return f
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
