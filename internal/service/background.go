package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/pkg/logger"
)

type writeJob struct {
	name  string
	fn    func(ctx context.Context)
	enqAt time.Time
}

// BackgroundWriter 读路径上 fire-and-forget 缓存回填的有界执行器。
// 响应不等待这些写入；失败只体现在日志和指标里。
type BackgroundWriter struct {
	ch chan writeJob
}

func NewBackgroundWriter(queueSize int) *BackgroundWriter {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &BackgroundWriter{ch: make(chan writeJob, queueSize)}
}

// Start 启动 workers 个消费者；返回停止函数（排空已入队的任务再退出）
func (w *BackgroundWriter) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-w.ch:
					w.run(job)
				case <-stopCh:
					for {
						select {
						case job := <-w.ch:
							w.run(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	}
}

func (w *BackgroundWriter) run(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job.fn(ctx)
}

// Enqueue 队列满时丢弃：缓存回填丢了可以靠下次 miss 重建
func (w *BackgroundWriter) Enqueue(name string, fn func(ctx context.Context)) {
	select {
	case w.ch <- writeJob{name: name, fn: fn, enqAt: time.Now()}:
	default:
		metrics.WriterDropped.Inc()
		logger.Warn("background writer queue full, drop", zap.String("job", name))
	}
}

// QueueLen 当前队列长度（采样值）
func (w *BackgroundWriter) QueueLen() int { return len(w.ch) }
