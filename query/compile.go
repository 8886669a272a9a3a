package query

import (
	"context"
	"fmt"

	"github.com/baxromumarov/seqflow"
	"golang.org/x/sync/errgroup"
)

// compiler turns a validated plan into a pull sequence over the provider's
// sources. native stays true while every source reached is a registered
// sequence.
type compiler struct {
	sources func(name string) (source, bool)
	native  bool
}

// compiled is a plan ready to run: the item sequence, plus the aggregate
// to apply to it when the plan's root is one.
type compiled struct {
	seq    *seqflow.Sequence[any]
	agg    *Aggregate
	native bool
}

func compile(plan Plan, sources func(string) (source, bool)) (*compiled, error) {
	c := &compiler{sources: sources, native: true}

	var agg *Aggregate
	switch n := plan.(type) {
	case Aggregate:
		agg, plan = &n, n.Input
	case *Aggregate:
		agg, plan = n, n.Input
	}

	seq, err := c.compile(plan)
	if err != nil {
		return nil, err
	}
	return &compiled{seq: seq, agg: agg, native: c.native}, nil
}

func (c *compiler) compile(p Plan) (*seqflow.Sequence[any], error) {
	switch n := p.(type) {
	case Source:
		return c.source(n.Name)
	case *Source:
		return c.source(n.Name)
	case Where:
		return c.where(n)
	case *Where:
		return c.where(*n)
	case Select:
		return c.selectNode(n)
	case *Select:
		return c.selectNode(*n)
	case Take:
		in, err := c.compile(n.Input)
		if err != nil {
			return nil, err
		}
		return in.Take(n.N), nil
	case *Take:
		return c.compile(*n)
	case Skip:
		in, err := c.compile(n.Input)
		if err != nil {
			return nil, err
		}
		return in.Skip(n.N), nil
	case *Skip:
		return c.compile(*n)
	case Concat:
		return c.concat(n)
	case *Concat:
		return c.concat(*n)
	case Join:
		return c.join(n)
	case *Join:
		return c.join(*n)
	default:
		return nil, fmt.Errorf("query: cannot compile %T", p)
	}
}

func (c *compiler) source(name string) (*seqflow.Sequence[any], error) {
	src, ok := c.sources(name)
	if !ok {
		return nil, fmt.Errorf("query: unknown source %q", name)
	}
	if src.seq != nil {
		return src.seq, nil
	}

	c.native = false
	fn := src.fn
	return seqflow.Create(func(ctx context.Context, y *seqflow.Yield[any]) error {
		items, err := fn(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := y.Return(ctx, it); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

func (c *compiler) where(w Where) (*seqflow.Sequence[any], error) {
	in, err := c.compile(w.Input)
	if err != nil {
		return nil, err
	}
	pred := w.Pred
	tested := seqflow.Select(in, func(_ context.Context, item any) (m match, err error) {
		defer recoverInto(&err)
		return match{item: item, ok: evalPredicate(pred, item)}, nil
	})
	kept := tested.Where(func(m match) bool { return m.ok })
	return seqflow.Select(kept, func(_ context.Context, m match) (any, error) { return m.item, nil }), nil
}

// match carries an item together with its predicate outcome, so that a
// panicking predicate fails the enumeration like any operator body.
type match struct {
	item any
	ok   bool
}

// recoverInto turns a panic in user code into a *seqflow.PanicError.
// It must be deferred directly.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = seqflow.NewPanicError(r)
	}
}

func (c *compiler) selectNode(s Select) (*seqflow.Sequence[any], error) {
	in, err := c.compile(s.Input)
	if err != nil {
		return nil, err
	}
	if s.Fn != nil {
		fn := s.Fn
		return seqflow.Select(in, func(_ context.Context, item any) (out any, err error) {
			defer recoverInto(&err)
			return fn(item)
		}), nil
	}
	fields := s.Fields
	return seqflow.Select(in, func(_ context.Context, item any) (any, error) {
		return project(item, fields), nil
	}), nil
}

func (c *compiler) concat(n Concat) (*seqflow.Sequence[any], error) {
	parts := make([]*seqflow.Sequence[any], 0, len(n.Inputs))
	for _, in := range n.Inputs {
		seq, err := c.compile(in)
		if err != nil {
			return nil, err
		}
		parts = append(parts, seq)
	}
	return parts[0].Concat(parts[1:]...), nil
}

// join drains both inputs concurrently, indexes the right side by key and
// then streams the matches in left order.
func (c *compiler) join(j Join) (*seqflow.Sequence[any], error) {
	left, err := c.compile(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(j.Right)
	if err != nil {
		return nil, err
	}

	return seqflow.Create(func(ctx context.Context, y *seqflow.Yield[any]) error {
		var ls, rs []any
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			ls, err = left.ToSlice(gctx)
			return err
		})
		g.Go(func() (err error) {
			rs, err = right.ToSlice(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		index := make(map[any][]any, len(rs))
		for _, r := range rs {
			if k, ok := joinKey(r, j.RightKey); ok {
				index[k] = append(index[k], r)
			}
		}
		for _, l := range ls {
			k, ok := joinKey(l, j.LeftKey)
			if !ok {
				continue
			}
			for _, r := range index[k] {
				if err := y.Return(ctx, Record{"left": l, "right": r}); err != nil {
					return err
				}
			}
		}
		return nil
	}), nil
}
