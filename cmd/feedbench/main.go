package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/feedengine/config"
	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
	"github.com/campushq/feedengine/internal/service"
	"github.com/campushq/feedengine/pkg/database"
	"github.com/campushq/feedengine/pkg/redisx"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

// 本地基准：N 个粉丝的作者连续发帖，测扇出落地与 feed 首页读取延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	rdb := must(redisx.InitClient(cfg))

	N := envInt("N", 5000)       // followers of the author
	POSTS := envInt("POSTS", 50) // posts to publish
	READS := envInt("READS", 200)

	_ = db.Exec("TRUNCATE TABLE posts, follows, connections, likes, college_members, users RESTART IDENTITY CASCADE").Error
	rdb.FlushDB(context.Background())

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	fc := cfg.Feed
	timeline := cache.NewTimelineCache(rdb, fc.TimelineCap, fc.TimelineTTL)
	outbox := cache.NewOutboxCache(rdb, fc.OutboxCap, fc.OutboxTTL)
	snapshots := cache.NewSnapshotCache(rdb, fc.SnapshotTTL)
	relCache := cache.NewRelationshipCache(rdb, fc.RelationshipTTL)
	trendCache := cache.NewTrendingCache(rdb, fc.TrendingTTL)

	bus := event.NewBus(fc.WriterQueueSize, fc.WriterWorkers)
	defer bus.Close()
	writer := service.NewBackgroundWriter(fc.WriterQueueSize)
	stop := writer.Start(fc.WriterWorkers)
	defer stop(context.Background())

	relSvc := service.NewRelationshipService(followRepo, connRepo, suggestionRepo, relCache, bus, fc.CelebrityThreshold)
	dispatcher := service.NewFanoutDispatcher(timeline, outbox, snapshots, relCache, relSvc, fc.CelebrityThreshold)
	dispatcher.Register(bus)
	postSvc := service.NewPostService(postRepo, userRepo, snapshots, bus)
	feedSvc := service.NewFeedService(timeline, outbox, snapshots, relCache, trendCache, relSvc,
		likeRepo, postRepo, userRepo, collegeRepo, writer, service.FeedPolicy{})

	ctx := context.Background()

	// seed: one author, N followers
	author := model.User{ID: "author0", Username: "author0", Email: "author0@example.com"}
	_ = db.Where("id = ?", author.ID).FirstOrCreate(&author).Error
	users := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com"}
	}
	_ = db.CreateInBatches(&users, 1000).Error
	for i := 0; i < N; i++ {
		_ = followRepo.Create(ctx, users[i].ID, author.ID)
	}

	// publish POSTS and wait for fanout to land in follower timelines
	pubDurations := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		_ = must(postSvc.Publish(ctx, service.PublishInput{AuthorID: author.ID, Content: fmt.Sprintf("hello %d", i)}))
		pubDurations = append(pubDurations, time.Since(st))
	}
	deadline := time.Now().Add(2 * time.Minute)
	for timeline.Size(ctx, users[0].ID) < int64(POSTS) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	// measure feed reads for random followers
	readDurations := make([]time.Duration, 0, READS)
	for i := 0; i < READS; i++ {
		u := users[i%len(users)]
		st := time.Now()
		page := must(feedSvc.GetFeed(ctx, u.ID, 0, 20))
		readDurations = append(readDurations, time.Since(st))
		if i == 0 {
			fmt.Printf("first page: items=%d next_cursor=%q\n", len(page.Items), page.NextCursor)
		}
	}

	var pubSum, readSum time.Duration
	for _, d := range pubDurations {
		pubSum += d
	}
	for _, d := range readDurations {
		readSum += d
	}
	fmt.Printf("N=%d POSTS=%d READS=%d\n", N, POSTS, READS)
	fmt.Printf("Publish latency: avg=%v p95=%v p99=%v\n", pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	fmt.Printf("Feed read latency: avg=%v p95=%v p99=%v\n", readSum/time.Duration(len(readDurations)), pct(readDurations, 0.95), pct(readDurations, 0.99))
	fmt.Printf("timeline size (user0): %d\n", timeline.Size(ctx, users[0].ID))
}
