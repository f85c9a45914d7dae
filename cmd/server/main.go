package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/config"
	"github.com/campushq/feedengine/internal/api"
	"github.com/campushq/feedengine/internal/api/handler"
	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/repository"
	"github.com/campushq/feedengine/internal/service"
	"github.com/campushq/feedengine/pkg/database"
	"github.com/campushq/feedengine/pkg/logger"
	"github.com/campushq/feedengine/pkg/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("db init failed", zap.Error(err))
		return
	}
	// 缓存层缺席只是变慢，不是失败
	rdb, err := redisx.InitClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable at startup, serving degraded", zap.Error(err))
	}

	// repositories
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	// cache tier
	fc := cfg.Feed
	timeline := cache.NewTimelineCache(rdb, fc.TimelineCap, fc.TimelineTTL)
	outbox := cache.NewOutboxCache(rdb, fc.OutboxCap, fc.OutboxTTL)
	snapshots := cache.NewSnapshotCache(rdb, fc.SnapshotTTL)
	relCache := cache.NewRelationshipCache(rdb, fc.RelationshipTTL)
	trendCache := cache.NewTrendingCache(rdb, fc.TrendingTTL)

	// event bus + background workers
	bus := event.NewBus(fc.WriterQueueSize, fc.WriterWorkers)
	defer bus.Close()
	writer := service.NewBackgroundWriter(fc.WriterQueueSize)
	stopWriter := writer.Start(fc.WriterWorkers)
	defer stopWriter(context.Background())

	// services
	relSvc := service.NewRelationshipService(followRepo, connRepo, suggestionRepo, relCache, bus, fc.CelebrityThreshold)
	dispatcher := service.NewFanoutDispatcher(timeline, outbox, snapshots, relCache, relSvc, fc.CelebrityThreshold)
	dispatcher.Register(bus)
	postSvc := service.NewPostService(postRepo, userRepo, snapshots, bus)
	likeSvc := service.NewLikeService(likeRepo, postRepo, bus)
	feedSvc := service.NewFeedService(timeline, outbox, snapshots, relCache, trendCache, relSvc,
		likeRepo, postRepo, userRepo, collegeRepo, writer, service.FeedPolicy{
			DefaultLimit:  fc.DefaultLimit,
			MaxLimit:      fc.MaxLimit,
			TrendingRatio: fc.TrendingRatio,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trendEngine := service.NewTrendingEngine(postRepo, trendCache, service.TrendingConfig{
		Interval: fc.TrendingInterval,
		Warmup:   fc.TrendingWarmup,
		Window:   fc.TrendingWindow,
		MaxRows:  fc.TrendingMaxRows,
		TopK:     fc.TrendingTopK,
		GuestK:   fc.GuestFeedTopK,
	})
	trendEngine.Start(ctx)

	h := handler.New(feedSvc, postSvc, likeSvc, relSvc)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg, h),
	}
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
