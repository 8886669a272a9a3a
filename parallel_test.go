package seqflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelSelectOrdered(t *testing.T) {
	seq := seqflow.ParallelSelect(seqflow.Range(0, 20), seqflow.ParallelOptions{Workers: 4, Ordered: true},
		func(_ context.Context, v int) (int, error) {
			// Later items finish first.
			time.Sleep(time.Duration(20-v) * 100 * time.Microsecond)
			return v * v, nil
		})

	got, err := seq.ToSlice(context.Background())
	require.NoError(t, err)
	want := make([]int, 20)
	for i := range want {
		want[i] = i * i
	}
	assert.Equal(t, want, got)
}

func TestParallelSelectUnordered(t *testing.T) {
	seq := seqflow.ParallelSelect(seqflow.Range(0, 10), seqflow.ParallelOptions{Workers: 3},
		func(_ context.Context, v int) (int, error) {
			return v + 100, nil
		})

	got, err := seq.ToSlice(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{100, 101, 102, 103, 104, 105, 106, 107, 108, 109}, got)
}

func TestParallelSelectRespectsWorkers(t *testing.T) {
	const workers = 2
	var active, maxActive atomic.Int32

	seq := seqflow.ParallelSelect(seqflow.Range(0, 12), seqflow.ParallelOptions{Workers: workers},
		func(_ context.Context, v int) (int, error) {
			cur := active.Add(1)
			for {
				old := maxActive.Load()
				if cur <= old || maxActive.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return v, nil
		})

	n, err := seq.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.LessOrEqual(t, maxActive.Load(), int32(workers))
}

func TestParallelSelectFault(t *testing.T) {
	boom := errors.New("boom")
	seq := seqflow.ParallelSelect(seqflow.Range(0, 50), seqflow.ParallelOptions{Workers: 4, Ordered: true},
		func(ctx context.Context, v int) (int, error) {
			if v == 5 {
				return 0, boom
			}
			return v, nil
		})

	_, err := seq.ToSlice(context.Background())
	require.ErrorIs(t, err, boom)
	var pf *seqflow.ProducerFault
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "ParallelSelect", pf.Op)
}

func TestParallelSelectCloseCancelsWorkers(t *testing.T) {
	seq := seqflow.ParallelSelect(seqflow.Repeat(1, -1), seqflow.ParallelOptions{Workers: 2},
		func(ctx context.Context, v int) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Millisecond):
				return v, nil
			}
		})

	got, err := seq.Take(3).ToSlice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, got)
}

func TestParallelSelectValidation(t *testing.T) {
	assert.PanicsWithError(t, "ParallelSelect: workers must be non-negative, got -1", func() {
		seqflow.ParallelSelect(seqflow.Of(1), seqflow.ParallelOptions{Workers: -1},
			func(_ context.Context, v int) (int, error) { return v, nil })
	})
}
