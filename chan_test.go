package seqflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToChanScope(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	ch, errCh := countTo(4).ToChanScope(sc)

	var got []int
	for v := range ch {
		got = append(got, v)
	}
	require.NoError(t, <-errCh)
	require.NoError(t, sc.Wait())
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestToChanScopeFault(t *testing.T) {
	boom := errors.New("boom")
	failing := seqflow.Create(func(ctx context.Context, y *seqflow.Yield[int]) error {
		if err := y.Return(ctx, 1); err != nil {
			return err
		}
		return boom
	})

	sc := seqflow.NewScope(context.Background())
	ch, errCh := failing.ToChanScope(sc)
	for range ch {
	}
	assert.ErrorIs(t, <-errCh, boom)
	assert.ErrorIs(t, sc.Wait(), boom)
}

func TestToChanScopeCancel(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	ch, errCh := seqflow.Repeat("tick", -1).ToChanScope(sc)

	assert.Equal(t, "tick", <-ch)
	sc.Cancel(nil)
	for range ch {
	}
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.ErrorIs(t, sc.Wait(), context.Canceled)
}
