package query

import (
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is the item shape that field paths navigate.
type Record = map[string]any

// Lookup resolves a dot separated field path in item. The empty path is the
// item itself. It reports false when a segment is missing or a non-record
// value is in the way.
func Lookup(item any, field string) (any, bool) {
	if field == "" {
		return item, true
	}
	cur := item
	for _, seg := range strings.Split(field, ".") {
		rec, ok := cur.(Record)
		if !ok {
			return nil, false
		}
		cur, ok = rec[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize maps numbers to float64 and strings to their NFC form, so that
// values from Go code and from decoded plans compare alike.
func normalize(v any) any {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	f, ok := normalize(v).(float64)
	return f, ok
}

// equalValues compares two normalised values. Non-comparable values are
// never equal to anything.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// order returns -1, 0 or 1, and false when a and b are not both numbers or
// both strings.
func order(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func (c Compare) eval(item any) bool {
	raw, ok := Lookup(item, c.Field)
	if !ok {
		return false
	}
	got, want := normalize(raw), normalize(c.Value)

	switch c.Op {
	case Eq:
		return equalValues(got, want)
	case Ne:
		return !equalValues(got, want)
	case Contains:
		s, ok1 := got.(string)
		sub, ok2 := want.(string)
		return ok1 && ok2 && strings.Contains(s, sub)
	}

	cmp, ok := order(got, want)
	if !ok {
		return false
	}
	switch c.Op {
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Ge:
		return cmp >= 0
	}
	return false
}

// evalPredicate evaluates a validated predicate.
func evalPredicate(p Predicate, item any) bool {
	switch n := p.(type) {
	case Compare:
		return n.eval(item)
	case *Compare:
		return n.eval(item)
	case And:
		for _, x := range n {
			if !evalPredicate(x, item) {
				return false
			}
		}
		return true
	case Or:
		for _, x := range n {
			if evalPredicate(x, item) {
				return true
			}
		}
		return false
	case Not:
		return !evalPredicate(n.Pred, item)
	case *Not:
		return !evalPredicate(n.Pred, item)
	case PredicateFunc:
		return n.Fn(item)
	case *PredicateFunc:
		return n.Fn(item)
	default:
		panic(fmt.Sprintf("query: unsupported predicate %T", p))
	}
}

// joinKey returns a hashable form of the key at field.
func joinKey(item any, field string) (any, bool) {
	v, ok := Lookup(item, field)
	if !ok || v == nil {
		return nil, false
	}
	v = normalize(v)
	if !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

// project builds the record for a field-list Select.
func project(item any, fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := Lookup(item, f); ok {
			out[f] = v
		}
	}
	return out
}
