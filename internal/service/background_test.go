package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundWriterRunsJobs(t *testing.T) {
	w := NewBackgroundWriter(16)
	stop := w.Start(2)
	defer stop(context.Background())

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		w.Enqueue("job", func(ctx context.Context) { done.Add(1) })
	}
	require.Eventually(t, func() bool { return done.Load() == 10 }, 2*time.Second, 5*time.Millisecond)
}

func TestBackgroundWriterDropsWhenFull(t *testing.T) {
	w := NewBackgroundWriter(2)
	// 没有 worker 在消费：第三个任务必须被丢弃而不是阻塞调用方
	blocked := func(ctx context.Context) {}
	doneCh := make(chan struct{})
	go func() {
		w.Enqueue("a", blocked)
		w.Enqueue("b", blocked)
		w.Enqueue("c", blocked)
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("enqueue must never block")
	}
	assert.Equal(t, 2, w.QueueLen())
}

func TestBackgroundWriterStopDrains(t *testing.T) {
	w := NewBackgroundWriter(64)
	var done atomic.Int32
	for i := 0; i < 20; i++ {
		w.Enqueue("job", func(ctx context.Context) { done.Add(1) })
	}
	stop := w.Start(2)
	require.NoError(t, stop(context.Background()))
	assert.Zero(t, w.QueueLen())
}
