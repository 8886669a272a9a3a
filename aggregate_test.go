package seqflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	nums := seqflow.Range(1, 10)

	n, err := nums.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	sum, err := seqflow.Sum(ctx, nums)
	require.NoError(t, err)
	assert.Equal(t, 55, sum)

	avg, err := seqflow.Average(ctx, nums)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, avg, 1e-9)

	joined, err := seqflow.Reduce(ctx, seqflow.Of("a", "b", "c"), "", func(acc, s string) string {
		return acc + s
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", joined)
}

func TestAggregatesOnEmpty(t *testing.T) {
	ctx := context.Background()
	empty := seqflow.Empty[float64]()

	sum, err := seqflow.Sum(ctx, empty)
	require.NoError(t, err)
	assert.Zero(t, sum)

	_, err = seqflow.Average(ctx, empty)
	assert.ErrorIs(t, err, seqflow.ErrEmptySequence)

	_, found, err := empty.First(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	all, err := empty.All(ctx, func(float64) bool { return false })
	require.NoError(t, err)
	assert.True(t, all, "All is vacuously true")
}

func TestFirstAnyAllStopEarly(t *testing.T) {
	ctx := context.Background()
	var pulled int
	seq := seqflow.Range(1, 100).Peek(func(int) { pulled++ })

	v, found, err := seq.First(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, pulled)

	pulled = 0
	hit, err := seq.Any(ctx, func(v int) bool { return v == 3 })
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, pulled)

	pulled = 0
	all, err := seq.All(ctx, func(v int) bool { return v < 5 })
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, 5, pulled)
}

func TestForEachStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	var seen []int
	err := seqflow.Range(0, 10).ForEach(context.Background(), func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestSequenceEqual(t *testing.T) {
	ctx := context.Background()

	eq, err := seqflow.SequenceEqual(ctx, seqflow.Range(1, 3), countTo(3))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = seqflow.SequenceEqual(ctx, seqflow.Range(1, 3), countTo(4))
	require.NoError(t, err)
	assert.False(t, eq, "different lengths")

	eq, err = seqflow.SequenceEqualFunc(ctx, seqflow.Of("A", "b"), seqflow.Of("a", "B"), strings.EqualFold)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestSequenceEqualClosesBothOnMismatch(t *testing.T) {
	var sawDispose bool
	infinite := seqflow.Create(func(ctx context.Context, y *seqflow.Yield[int]) error {
		for {
			if err := y.Return(ctx, 7); err != nil {
				sawDispose = errors.Is(err, seqflow.ErrDisposed)
				return err
			}
		}
	})

	eq, err := seqflow.SequenceEqual(context.Background(), seqflow.Of(7, 8), infinite)
	require.NoError(t, err)
	assert.False(t, eq)
	assert.True(t, sawDispose)
}
