package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
)

// syncBus 测试用同步总线：Publish 直接在调用方 goroutine 里跑完全部 handler，
// 断言时无需等待
type syncBus struct {
	handlers map[string][]event.Handler
}

func newSyncBus() *syncBus { return &syncBus{handlers: map[string][]event.Handler{}} }

func (b *syncBus) Publish(topic string, payload interface{}) {
	for _, h := range b.handlers[topic] {
		_ = h(context.Background(), event.Event{Topic: topic, Payload: payload})
	}
}

func (b *syncBus) Subscribe(topic string, h event.Handler) {
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *syncBus) Close() {}

type testEnv struct {
	t  *testing.T
	mr *miniredis.Miniredis
	db *gorm.DB

	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	connRepo    repository.ConnectionRepository
	collegeRepo repository.CollegeRepository
	likeRepo    repository.LikeRepository

	timeline   *cache.TimelineCache
	outbox     *cache.TimelineCache
	snapshots  *cache.SnapshotCache
	relCache   *cache.RelationshipCache
	trendCache *cache.TrendingCache

	bus        *syncBus
	writer     *BackgroundWriter
	relSvc     RelationshipService
	dispatcher *FanoutDispatcher
	postSvc    *PostService
	likeSvc    *LikeService
	feedSvc    *FeedService
}

func newTestEnv(t *testing.T, celebThreshold int) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Post{}, &model.Follow{}, &model.Connection{},
		&model.CollegeMember{}, &model.Like{},
	))
	t.Cleanup(func() { sqlDB.Close() })

	env := &testEnv{
		t:           t,
		mr:          mr,
		db:          db,
		postRepo:    repository.NewPostRepository(db),
		userRepo:    repository.NewUserRepository(db),
		followRepo:  repository.NewFollowRepository(db),
		connRepo:    repository.NewConnectionRepository(db),
		collegeRepo: repository.NewCollegeRepository(db),
		likeRepo:    repository.NewLikeRepository(db),
		timeline:    cache.NewTimelineCache(rdb, 50, time.Hour),
		outbox:      cache.NewOutboxCache(rdb, 10, time.Hour),
		snapshots:   cache.NewSnapshotCache(rdb, time.Hour),
		relCache:    cache.NewRelationshipCache(rdb, time.Minute),
		trendCache:  cache.NewTrendingCache(rdb, time.Hour),
		bus:         newSyncBus(),
	}
	env.writer = NewBackgroundWriter(1024)
	stop := env.writer.Start(2)
	t.Cleanup(func() { stop(context.Background()) })

	suggestionRepo := repository.NewSuggestionRepository(db)
	env.relSvc = NewRelationshipService(env.followRepo, env.connRepo, suggestionRepo, env.relCache, env.bus, celebThreshold)
	env.dispatcher = NewFanoutDispatcher(env.timeline, env.outbox, env.snapshots, env.relCache, env.relSvc, celebThreshold)
	env.dispatcher.Register(env.bus)
	env.postSvc = NewPostService(env.postRepo, env.userRepo, env.snapshots, env.bus)
	env.likeSvc = NewLikeService(env.likeRepo, env.postRepo, env.bus)
	env.feedSvc = NewFeedService(env.timeline, env.outbox, env.snapshots, env.relCache, env.trendCache,
		env.relSvc, env.likeRepo, env.postRepo, env.userRepo, env.collegeRepo, env.writer, FeedPolicy{})
	return env
}

func (e *testEnv) user(id string) string {
	require.NoError(e.t, e.db.Create(&model.User{ID: id, Username: id, Email: id + "@example.com"}).Error)
	return id
}

func (e *testEnv) follow(from, to string) {
	require.NoError(e.t, e.followRepo.Create(context.Background(), from, to))
}

// post 直接落库（不走事件），模拟扇出前就存在的历史数据
func (e *testEnv) post(id, author string, age time.Duration, likes, comments int64) *model.Post {
	p := &model.Post{
		ID: id, AuthorID: author, Content: "content " + id,
		Visibility: model.VisibilityPublic,
		LikeCount:  likes, CommentCount: comments,
		CreatedAt: time.Now().Add(-age),
	}
	require.NoError(e.t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) publish(author, content string) *model.Post {
	p, err := e.postSvc.Publish(context.Background(), PublishInput{AuthorID: author, Content: content})
	require.NoError(e.t, err)
	return p
}

func postIDs(items []*FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Type == itemTypePost {
			out = append(out, it.Post.ID)
		}
	}
	return out
}

func postItems(items []*FeedItem) []*FeedItem {
	out := make([]*FeedItem, 0, len(items))
	for _, it := range items {
		if it.Type == itemTypePost {
			out = append(out, it)
		}
	}
	return out
}
