package seqflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/baxromumarov/seqflow"
)

func ExampleCreate() {
	fib := seqflow.Create(func(ctx context.Context, y *seqflow.Yield[int]) error {
		a, b := 0, 1
		for {
			if err := y.Return(ctx, a); err != nil {
				return err
			}
			a, b = b, a+b
		}
	})

	items, _ := fib.Take(10).ToSlice(context.Background())
	fmt.Println(items)
	// Output:
	// [0 1 1 2 3 5 8 13 21 34]
}

func ExampleSelect() {
	words := seqflow.Of("pull", "push", "join")
	upper := seqflow.Select(words, func(_ context.Context, w string) (string, error) {
		return strings.ToUpper(w), nil
	})

	_ = upper.Where(func(w string) bool { return strings.HasPrefix(w, "P") }).
		ForEach(context.Background(), func(w string) error {
			fmt.Println(w)
			return nil
		})
	// Output:
	// PULL
	// PUSH
}

func ExampleSequence_Concat() {
	items, _ := seqflow.Range(1, 3).Concat(seqflow.Of(10, 20)).ToSlice(context.Background())
	fmt.Println(items)
	// Output:
	// [1 2 3 10 20]
}

func ExampleAverage() {
	_, err := seqflow.Average(context.Background(), seqflow.Empty[int]())
	fmt.Println(errors.Is(err, seqflow.ErrEmptySequence))

	avg, _ := seqflow.Average(context.Background(), seqflow.Of(2, 4, 9))
	fmt.Println(avg)
	// Output:
	// true
	// 5
}

func ExampleSpawn() {
	sc := seqflow.NewScope(context.Background())
	h := seqflow.Spawn(sc, "sum", func(ctx context.Context) (int, error) {
		return seqflow.Sum(ctx, seqflow.Range(1, 100))
	})

	v, err := h.Wait(context.Background())
	fmt.Println(v, err)
	_ = sc.Wait()
	// Output:
	// 5050 <nil>
}

func ExampleRunScope() {
	err := seqflow.RunScope(context.Background(), func(sc *seqflow.Scope) {
		sc.Go("a", func(ctx context.Context) error { return errors.New("a failed") })
		sc.Go("b", func(ctx context.Context) error { return errors.New("b failed") })
	}, seqflow.WithPolicy(seqflow.Collect))

	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Println(line)
	}
	// Unordered output:
	// task "a" failed: a failed
	// task "b" failed: b failed
}

func ExampleParallelSelect() {
	squares := seqflow.ParallelSelect(seqflow.Range(1, 5), seqflow.ParallelOptions{Workers: 3, Ordered: true},
		func(_ context.Context, v int) (int, error) {
			return v * v, nil
		})

	items, _ := squares.ToSlice(context.Background())
	fmt.Println(items)
	// Output:
	// [1 4 9 16 25]
}
