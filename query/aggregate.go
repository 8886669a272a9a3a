package query

import (
	"context"
	"fmt"

	"github.com/baxromumarov/seqflow"
)

// aggregate folds seq with a. Count returns an int; every other aggregate
// returns a float64. Average, Min and Max of an empty input fail with
// [seqflow.ErrEmptySequence].
func aggregate(ctx context.Context, seq *seqflow.Sequence[any], a *Aggregate) (any, error) {
	if a.Op == Count {
		return seq.Count(ctx)
	}

	var (
		n     int
		total float64
		best  float64
	)
	err := seq.ForEach(ctx, func(item any) error {
		raw, ok := Lookup(item, a.Field)
		if !ok {
			return fmt.Errorf("query: %s: field %q missing in %v", a.Op, a.Field, item)
		}
		f, ok := toFloat(raw)
		if !ok {
			return fmt.Errorf("query: %s: value %v (%T) is not numeric", a.Op, raw, raw)
		}
		switch {
		case n == 0:
			best = f
		case a.Op == Min && f < best:
			best = f
		case a.Op == Max && f > best:
			best = f
		}
		total += f
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch a.Op {
	case Sum:
		return total, nil
	case Average:
		if n == 0 {
			return nil, seqflow.ErrEmptySequence
		}
		return total / float64(n), nil
	default:
		if n == 0 {
			return nil, seqflow.ErrEmptySequence
		}
		return best, nil
	}
}
