package query

import (
	"context"

	"github.com/baxromumarov/seqflow"
)

// Query is a validated plan bound to a provider. Its builder methods
// return new queries; the receiver is never modified.
type Query struct {
	p    *Provider
	plan Plan
}

// CreateQuery validates plan and binds it to p.
func (p *Provider) CreateQuery(plan Plan) (*Query, error) {
	if err := Validate(plan, p); err != nil {
		return nil, err
	}
	return &Query{p: p, plan: plan}, nil
}

// From is CreateQuery over a single source.
func (p *Provider) From(name string) (*Query, error) {
	return p.CreateQuery(Source{Name: name})
}

// Plan returns the query's plan.
func (q *Query) Plan() Plan {
	return q.plan
}

// Where narrows the query to the items matching pred.
func (q *Query) Where(pred Predicate) *Query {
	return &Query{p: q.p, plan: Where{Input: q.plan, Pred: pred}}
}

// Select projects the query's items to the given fields.
func (q *Query) Select(fields ...string) *Query {
	return &Query{p: q.p, plan: Select{Input: q.plan, Fields: fields}}
}

// Map replaces every item with fn's result. label names fn in [Explain].
func (q *Query) Map(label string, fn func(any) (any, error)) *Query {
	return &Query{p: q.p, plan: Select{Input: q.plan, Fn: fn, Label: label}}
}

// Take limits the query to n items.
func (q *Query) Take(n int) *Query {
	return &Query{p: q.p, plan: Take{Input: q.plan, N: n}}
}

// Skip drops the first n items.
func (q *Query) Skip(n int) *Query {
	return &Query{p: q.p, plan: Skip{Input: q.plan, N: n}}
}

// Aggregate folds the query into a scalar.
func (q *Query) Aggregate(op AggOp, field string) *Query {
	return &Query{p: q.p, plan: Aggregate{Input: q.plan, Op: op, Field: field}}
}

// Execute runs the query on the calling goroutine.
func (q *Query) Execute(ctx context.Context) (Result, error) {
	return q.p.Execute(ctx, q.plan)
}

// ExecuteAsync runs the query in the background; see
// [Provider.ExecuteAsync].
func (q *Query) ExecuteAsync(ctx context.Context) (*seqflow.Handle[Result], error) {
	return q.p.ExecuteAsync(ctx, q.plan)
}

// Sequence returns the query as a pull sequence. When every source is a
// sequence this is the compiled plan itself, pulled lazily. Otherwise the
// plan runs to completion inside a generator, on the producer goroutine,
// and its items are handed out one by one. An aggregate query yields its
// scalar as the only item. Plan errors surface from the first Next.
func (q *Query) Sequence() *seqflow.Sequence[any] {
	c, err := q.p.prepare(q.plan)
	if err == nil && c.native && c.agg == nil {
		return c.seq
	}

	return seqflow.Create(func(ctx context.Context, y *seqflow.Yield[any]) error {
		if err != nil {
			return err
		}
		res, err := q.p.run(ctx, c, Inline)
		if err != nil {
			return err
		}
		if c.agg != nil {
			return y.Return(ctx, res.Scalar)
		}
		for _, it := range res.Items {
			if err := y.Return(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
}
