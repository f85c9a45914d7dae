package service

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
	"github.com/campushq/feedengine/pkg/logger"
)

// TrendingConfig 重算参数
type TrendingConfig struct {
	Interval time.Duration
	Warmup   time.Duration
	Window   time.Duration
	MaxRows  int
	TopK     int
	GuestK   int
}

// TrendingEngine 定时全量重算全局趋势集合。每轮整体替换而不是增量更新：
// 分值新鲜度以重算周期为界，换来读路径零计算。
type TrendingEngine struct {
	postRepo repository.PostRepository
	trending *cache.TrendingCache
	cfg      TrendingConfig
	running  atomic.Bool // Idle <-> Recomputing
}

func NewTrendingEngine(postRepo repository.PostRepository, trending *cache.TrendingCache, cfg TrendingConfig) *TrendingEngine {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 48 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 300
	}
	if cfg.GuestK <= 0 || cfg.GuestK > cfg.TopK {
		cfg.GuestK = cfg.TopK / 6
	}
	return &TrendingEngine{postRepo: postRepo, trending: trending, cfg: cfg}
}

// TrendingScore 互动速度分：二次方的年龄衰减让新帖的互动速度压过旧帖的总量
func TrendingScore(p *model.Post, now time.Time) float64 {
	ageHours := now.Sub(p.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return float64(p.Engagement()) / math.Pow(ageHours+1, 2)
}

// Start 进程启动后先等一小段 warmup 再跑第一轮，之后固定间隔触发
func (t *TrendingEngine) Start(ctx context.Context) {
	go func() {
		select {
		case <-time.After(t.cfg.Warmup):
		case <-ctx.Done():
			return
		}
		if err := t.RecomputeOnce(ctx); err != nil {
			logger.Warn("trending recompute failed", zap.Error(err))
		}
		ticker := time.NewTicker(t.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := t.RecomputeOnce(ctx); err != nil {
					logger.Warn("trending recompute failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RecomputeOnce 拉取近窗口的公开帖，打分排序，整体替换趋势集合。
// 同一时刻只允许一轮在跑。
func (t *TrendingEngine) RecomputeOnce(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}
	defer t.running.Store(false)

	posts, err := t.postRepo.FindRecentPublic(ctx, t.cfg.Window, t.cfg.MaxRows)
	if err != nil {
		return err
	}
	now := time.Now()
	entries := make([]cache.TrendingEntry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, cache.TrendingEntry{PostID: p.ID, Score: TrendingScore(p, now)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > t.cfg.TopK {
		entries = entries[:t.cfg.TopK]
	}
	return t.trending.Replace(ctx, entries, t.cfg.GuestK)
}
