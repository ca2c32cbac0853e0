package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(2, 8, zap.NewNop())
	defer p.Shutdown()

	var wg sync.WaitGroup
	var count int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := p.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		})
		assert.True(t, ok)
	}
	wg.Wait()
	assert.Equal(t, int32(5), atomic.LoadInt32(&count))
}

func TestPool_SaturationReturnsFalse(t *testing.T) {
	block := make(chan struct{})
	p := New(1, 1, zap.NewNop())
	defer func() {
		close(block)
		p.Shutdown()
	}()

	// Occupy the single worker.
	require := assert.New(t)
	started := make(chan struct{})
	require.True(p.Submit(func(ctx context.Context) { close(started); <-block }))
	<-started
	// Fill the one-slot queue.
	require.True(p.Submit(func(ctx context.Context) {}))
	// The pool is now fully saturated: one task running, one queued.
	ok := p.Submit(func(ctx context.Context) {})
	assert.False(t, ok)
}

func TestPool_TaskPanicDoesNotCrashWorker(t *testing.T) {
	p := New(1, 4, zap.NewNop())
	defer p.Shutdown()

	p.Submit(func(ctx context.Context) { panic("boom") })

	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func(ctx context.Context) {
		defer wg.Done()
		atomic.StoreInt32(&ran, 1)
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic in time")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}
