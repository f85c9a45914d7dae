// Package event provides the in-process message channel the fan-out path
// subscribes to. Delivery is at-least-once within the process and handlers
// must be idempotent; the bus carries no transport so handlers stay unit
// testable as pure functions of the payload plus injected collaborators.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/feedengine/pkg/logger"
)

// 话题常量
const (
	TopicPostCreated        = "post.created"
	TopicPostDeleted        = "post.deleted"
	TopicFollowCreated      = "follow.created"
	TopicFollowRemoved      = "follow.removed"
	TopicConnectionAccepted = "connection.accepted"
	TopicConnectionRemoved  = "connection.removed"
	TopicPostLikeChanged    = "post.like_changed"
	TopicPostCommentChanged = "post.comment_changed"
)

// Event 一条带话题的消息
type Event struct {
	Topic   string
	Payload interface{}
}

// PostEvent post.created / post.deleted 载荷
type PostEvent struct {
	PostID     string
	AuthorID   string
	Visibility string
	CollegeID  string
	CreatedAt  time.Time
}

// RelationEvent follow/connection 生命周期载荷
type RelationEvent struct {
	FromUserID string
	ToUserID   string
}

// CountEvent 互动计数变更载荷
type CountEvent struct {
	PostID string
	Count  int64
}

// Handler 处理一条事件；错误只记日志，不重试（尽力而为投递）
type Handler func(ctx context.Context, e Event) error

// Bus 话题 + 订阅注册的进程内消息通道
type Bus interface {
	Publish(topic string, payload interface{})
	Subscribe(topic string, h Handler)
	Close()
}

type bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	ch       chan Event
	wg       sync.WaitGroup
	done     chan struct{}
	closed   bool
}

// NewBus 启动 workers 个投递 goroutine；队列满时丢弃并告警
func NewBus(queueSize, workers int) Bus {
	if queueSize <= 0 {
		queueSize = 4096
	}
	if workers <= 0 {
		workers = 4
	}
	b := &bus{
		handlers: make(map[string][]Handler),
		ch:       make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.loop()
	}
	return b
}

func (b *bus) loop() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			// 排空剩余事件再退出
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *bus) dispatch(e Event) {
	b.mu.RLock()
	hs := b.handlers[e.Topic]
	b.mu.RUnlock()
	for _, h := range hs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := h(ctx, e); err != nil {
			logger.Warn("event handler failed", zap.String("topic", e.Topic), zap.Error(err))
		}
		cancel()
	}
}

func (b *bus) Publish(topic string, payload interface{}) {
	select {
	case b.ch <- Event{Topic: topic, Payload: payload}:
	default:
		logger.Warn("event bus queue full, drop", zap.String("topic", topic))
	}
}

func (b *bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
	b.wg.Wait()
}
