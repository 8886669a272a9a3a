package seqflow

import (
	"context"

	"github.com/baxromumarov/seqflow/chanx"
)

// ToChanScope enumerates s on a task owned by sc and sends every item to
// the returned channel. The error channel receives exactly one value, nil
// on success, once the item channel is closed. The task stops when the
// sequence ends or the scope's context is cancelled.
func (s *Sequence[T]) ToChanScope(sc *Scope) (<-chan T, <-chan error) {
	ch := make(chan T)
	errCh := make(chan error, 1)
	sc.Go("sequence-to-chan", func(ctx context.Context) error {
		defer close(errCh)
		defer close(ch)
		err := drain(ctx, s, func(v T) (bool, error) {
			return true, chanx.Send(ctx, ch, v)
		})
		errCh <- err
		if IsCancellation(err) {
			return nil
		}
		return err
	})
	return ch, errCh
}
