package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunner_RunsDetachedFromCallerCancellation(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var sawCancel atomic.Bool
	r.Go(ctx, "slow", func(ctx context.Context) error {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})

	cancel()
	close(release)
	r.Wait()

	assert.False(t, sawCancel.Load())
}

func TestRunner_FailuresAndPanicsAreContained(t *testing.T) {
	r := NewRunner()
	var ran atomic.Int32

	r.Go(context.Background(), "ok", func(context.Context) error { ran.Add(1); return nil })
	r.Go(context.Background(), "fails", func(context.Context) error { ran.Add(1); return errors.New("boom") })
	r.Go(context.Background(), "panics", func(context.Context) error { ran.Add(1); panic("kaboom") })
	r.Wait()

	started, failed := r.Stats()
	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, 3, started)
	assert.Equal(t, 2, failed)
}

func TestRunner_KeepsContextValues(t *testing.T) {
	type key struct{}
	r := NewRunner()
	ctx := context.WithValue(context.Background(), key{}, "req-1")

	var got atomic.Value
	r.Go(ctx, "value", func(ctx context.Context) error {
		got.Store(ctx.Value(key{}))
		return nil
	})
	r.Wait()
	assert.Equal(t, "req-1", got.Load())
}
