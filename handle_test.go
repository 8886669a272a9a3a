package seqflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnHandle(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	h := seqflow.Spawn(sc, "answer", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	require.NoError(t, sc.Wait())
}

func TestSpawnHandleErrorDoesNotFailScope(t *testing.T) {
	boom := errors.New("boom")
	sc := seqflow.NewScope(context.Background())
	failed := seqflow.Spawn(sc, "fail", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	ok := seqflow.Spawn(sc, "ok", func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "fine", ctx.Err()
	})

	_, err := failed.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	v, err := ok.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fine", v)
	assert.NoError(t, sc.Wait())
}

func TestSpawnHandlePanic(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	h := seqflow.Spawn(sc, "panic", func(ctx context.Context) (int, error) {
		panic("bad")
	})

	_, err := h.Wait(context.Background())
	var pe *seqflow.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad", pe.Value)
	assert.NoError(t, sc.Wait())
}

func TestHandleCancel(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	started := make(chan struct{})
	h := seqflow.Spawn(sc, "blocked", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	h.Cancel()
	_, err := h.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, sc.Wait())
}

func TestHandleWaitAbandoned(t *testing.T) {
	sc := seqflow.NewScope(context.Background())
	release := make(chan struct{})
	h := seqflow.Spawn(sc, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, sc.Wait())
}

func TestHandleSkippedWhenScopeCancelled(t *testing.T) {
	sc := seqflow.NewScope(context.Background(), seqflow.WithLimit(1))
	release := make(chan struct{})
	holding := make(chan struct{})
	seqflow.Spawn(sc, "holder", func(ctx context.Context) (int, error) {
		close(holding)
		<-release
		return 0, nil
	})
	<-holding
	queued := seqflow.Spawn(sc, "queued", func(ctx context.Context) (int, error) {
		return 1, nil
	})

	cause := errors.New("shutdown")
	sc.Cancel(cause)
	_, err := queued.Wait(context.Background())
	close(release)

	assert.ErrorIs(t, err, cause)
	_ = sc.Wait()
}

func TestHandleThen(t *testing.T) {
	h := seqflow.Completed("done", nil)
	var got string
	h.Then(func(v string, err error) { got = v })
	assert.Equal(t, "done", got, "completed handle runs continuation immediately")

	sc := seqflow.NewScope(context.Background())
	release := make(chan struct{})
	pending := seqflow.Spawn(sc, "later", func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	results := make(chan int, 2)
	pending.Then(func(v int, err error) { results <- v })
	pending.Then(func(v int, err error) { results <- v * 2 })
	close(release)

	assert.Equal(t, 7, <-results)
	assert.Equal(t, 14, <-results)
	<-pending.Done()
	require.NoError(t, sc.Wait())
}
