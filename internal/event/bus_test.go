package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus(16, 2)
	defer b.Close()

	var mu sync.Mutex
	got := map[string]int{}
	record := func(name string) Handler {
		return func(ctx context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[name]++
			return nil
		}
	}
	b.Subscribe(TopicPostCreated, record("a"))
	b.Subscribe(TopicPostCreated, record("b"))
	b.Subscribe(TopicPostDeleted, record("c"))

	b.Publish(TopicPostCreated, PostEvent{PostID: "p1"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["a"] == 1 && got["b"] == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.Zero(t, got["c"], "unrelated topic not delivered")
	mu.Unlock()
}

func TestBusCloseDrainsQueue(t *testing.T) {
	b := NewBus(64, 1)

	var mu sync.Mutex
	count := 0
	b.Subscribe(TopicFollowCreated, func(ctx context.Context, e Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	for i := 0; i < 10; i++ {
		b.Publish(TopicFollowCreated, RelationEvent{FromUserID: "a", ToUserID: "b"})
	}
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, count)
}
