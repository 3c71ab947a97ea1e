package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StartReplacesRunningTask(t *testing.T) {
	r := NewRegistry()
	firstCancelled := make(chan struct{})

	r.Start(context.Background(), "ride_1", func(ctx context.Context) {
		<-ctx.Done()
		close(firstCancelled)
	})
	require.Equal(t, 1, r.Len())

	r.Start(context.Background(), "ride_1", func(ctx context.Context) {
		<-ctx.Done()
	})

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("replaced task was not cancelled")
	}
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Stop("ride_1"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentStartSameKey_NeverOverlaps(t *testing.T) {
	r := NewRegistry()

	// Park a task under the key so both concurrent Start calls have to wait
	// for it before registering their replacements.
	release := make(chan struct{})
	r.Start(context.Background(), "ride_1", func(ctx context.Context) {
		select {
		case <-release:
		case <-ctx.Done():
		}
	})

	var running, peak int32
	task := func(ctx context.Context) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-ctx.Done()
		atomic.AddInt32(&running, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Start(context.Background(), "ride_1", task)
		}()
	}

	// Give both Start calls time to reach the wait on the parked task, then
	// let it exit so they race to register.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	r.Stop("ride_1")
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(1),
		"two tasks ran concurrently under one key")
	assert.Equal(t, int32(0), atomic.LoadInt32(&running))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_StopUnknownKey(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Stop("nope"))
}

func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry()
	var exited int32
	for _, key := range []string{"a", "b", "c"} {
		r.Start(context.Background(), key, func(ctx context.Context) {
			<-ctx.Done()
			atomic.AddInt32(&exited, 1)
		})
	}
	require.Equal(t, 3, r.Len())

	r.StopAll()
	assert.Equal(t, int32(3), atomic.LoadInt32(&exited))
	assert.Equal(t, 0, r.Len())
}
