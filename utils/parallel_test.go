package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestRunParallel(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		results := make([]int, 50)
		err := RunParallel(context.Background(), len(results), workers, func(_ context.Context, i int) error {
			results[i] = i * i
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		for i, v := range results {
			test.That(t, v, test.ShouldEqual, i*i)
		}
	}

	var ran atomic.Int32
	bad := errors.New("bad")
	err := RunParallel(context.Background(), 10, 2, func(_ context.Context, i int) error {
		ran.Add(1)
		if i == 3 {
			return bad
		}
		return nil
	})
	test.That(t, errors.Is(err, bad), test.ShouldBeTrue)
	test.That(t, ran.Load(), test.ShouldBeGreaterThan, 0)

	err = RunParallel(context.Background(), 3, 3, func(_ context.Context, i int) error {
		if i == 1 {
			panic("boom")
		}
		return nil
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "panic")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = RunParallel(ctx, 5, 1, func(_ context.Context, i int) error { return nil })
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
