package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openForever[T any](T) Observable[struct{}] { return Never[struct{}]() }

func sum(l, r int) int { return l + r }

func TestJoin_OpenWindowsProduceEveryPair(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	out := &recorder[int]{}
	Join(left, right, openForever[int], openForever[int], sum).Subscribe(out)

	for _, v := range []int{1, 2, 3} {
		require.NoError(t, left.OnNext(ctx, v))
	}
	for _, v := range []int{2, 3, 4} {
		require.NoError(t, right.OnNext(ctx, v))
	}

	assert.Equal(t, []int{3, 4, 5, 4, 5, 6, 5, 6, 7}, out.Items())

	require.NoError(t, left.OnCompleted(ctx))
	assert.Zero(t, out.Completed(), "right is still running and left windows are open")
	require.NoError(t, right.OnCompleted(ctx))
	assert.Equal(t, 1, out.Completed())
}

func TestJoin_SynchronousSources(t *testing.T) {
	out := &recorder[int]{}
	Join(Of(1, 2, 3), Of(2, 3, 4), openForever[int], openForever[int], sum).Subscribe(out)

	assert.ElementsMatch(t, []int{3, 4, 5, 4, 5, 6, 5, 6, 7}, out.Items())
	assert.Equal(t, 1, out.Completed())
}

func TestJoin_ExpiredWindowStopsMatching(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	durations := map[int]Subject[struct{}]{}
	leftWindow := func(v int) Observable[struct{}] {
		d := NewSubject[struct{}]()
		durations[v] = d
		return d
	}
	out := &recorder[int]{}
	Join(left, right, leftWindow, openForever[int], sum).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	require.NoError(t, left.OnNext(ctx, 2))
	require.NoError(t, right.OnNext(ctx, 10))
	assert.Equal(t, []int{11, 12}, out.Items())

	require.NoError(t, durations[1].OnNext(ctx, struct{}{}))
	assert.Zero(t, durations[1].Len(), "window subscription released on expiry")

	require.NoError(t, right.OnNext(ctx, 20))
	assert.Equal(t, []int{11, 12, 22}, out.Items())
}

func TestJoin_CompletesWhenLastWindowCloses(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	window := NewSubject[struct{}]()
	out := &recorder[int]{}
	Join(left, right,
		func(int) Observable[struct{}] { return window },
		openForever[int], sum,
	).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	require.NoError(t, left.OnCompleted(ctx))
	assert.Zero(t, out.Completed())

	require.NoError(t, right.OnNext(ctx, 5))
	assert.Equal(t, []int{6}, out.Items())

	require.NoError(t, window.OnCompleted(ctx))
	assert.Equal(t, 1, out.Completed())
	assert.Zero(t, right.Len(), "sources released")

	// Nothing after completion.
	require.NoError(t, right.OnNext(ctx, 6))
	assert.Equal(t, []int{6}, out.Items())
	assert.Equal(t, 1, out.Completed())
}

func TestJoin_CompletesWhenDoneSideIsEmpty(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	out := &recorder[int]{}
	Join(left, right, openForever[int], openForever[int], sum).Subscribe(out)

	require.NoError(t, right.OnNext(ctx, 1))
	require.NoError(t, left.OnCompleted(ctx))
	assert.Equal(t, 1, out.Completed())
	assert.Empty(t, out.Items())
}

func TestJoin_TimerWindows(t *testing.T) {
	out := &recorder[int]{}
	Join(Of(1), Never[int](),
		func(int) Observable[struct{}] { return Timer(5 * time.Millisecond) },
		openForever[int], sum,
	).Subscribe(out)

	assert.Eventually(t, func() bool { return out.Completed() == 1 }, time.Second, time.Millisecond)
}

func TestJoin_SourceErrorTerminates(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	window := NewSubject[struct{}]()
	out := &recorder[int]{}
	Join(left, right,
		func(int) Observable[struct{}] { return window },
		openForever[int], sum,
	).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	boom := errors.New("right failed")
	require.NoError(t, right.OnError(ctx, boom))

	assert.Equal(t, boom, out.Err())
	assert.Zero(t, left.Len())
	assert.Zero(t, window.Len())

	require.NoError(t, left.OnNext(ctx, 2))
	assert.Empty(t, out.Items())
}

func TestJoin_DurationErrorTerminates(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	window := NewSubject[struct{}]()
	out := &recorder[int]{}
	Join(left, right,
		func(int) Observable[struct{}] { return window },
		openForever[int], sum,
	).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	boom := errors.New("window failed")
	require.NoError(t, window.OnError(ctx, boom))
	assert.Equal(t, boom, out.Err())
	assert.Zero(t, right.Len())
}

func TestJoin_SelectorPanic(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	out := &recorder[int]{}
	Join(left, right, openForever[int], openForever[int], func(int, int) int {
		panic("selector")
	}).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	require.NoError(t, right.OnNext(ctx, 2))

	var pf *seqflow.ProducerFault
	require.ErrorAs(t, out.Err(), &pf)
	var pe *seqflow.PanicError
	assert.ErrorAs(t, out.Err(), &pe)
}

func TestJoin_LateErrorIsUnhandled(t *testing.T) {
	var got []error
	restore := seqflow.SetUnhandledHandler(func(err error) { got = append(got, err) })
	defer restore()

	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()
	var fail Observer[struct{}]
	leftWindow := func(int) Observable[struct{}] {
		return ObservableFunc[struct{}](func(o Observer[struct{}]) *Subscription {
			fail = o
			return NewSubscription(nil)
		})
	}
	out := &recorder[int]{}
	Join(left, right, leftWindow, openForever[int], sum).Subscribe(out)

	require.NoError(t, left.OnNext(ctx, 1))
	require.NoError(t, right.OnCompleted(ctx))
	require.NoError(t, left.OnCompleted(ctx))
	require.Equal(t, 1, out.Completed())

	late := errors.New("late window failure")
	require.NoError(t, fail.OnError(ctx, late))
	require.Len(t, got, 1)
	assert.Equal(t, late, got[0])
}

func TestJoin_DisposeFromDownstream(t *testing.T) {
	ctx := context.Background()
	left, right := NewSubject[int](), NewSubject[int]()

	var (
		sub  *Subscription
		seen []int
	)
	sub = Join(left, right, openForever[int], openForever[int], sum).Subscribe(&Funcs[int]{
		Next: func(_ context.Context, v int) error {
			seen = append(seen, v)
			sub.Dispose()
			return nil
		},
	})

	require.NoError(t, left.OnNext(ctx, 1))
	require.NoError(t, left.OnNext(ctx, 2))
	require.NoError(t, right.OnNext(ctx, 10))

	assert.Equal(t, []int{11}, seen)
	assert.Zero(t, left.Len())
	assert.Zero(t, right.Len())
}

func TestJoin_ValidatesArguments(t *testing.T) {
	assert.Panics(t, func() {
		Join[int, int, struct{}, struct{}, int](nil, nil, nil, nil, nil)
	})
}
