package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
	"github.com/campushq/feedengine/pkg/logger"
)

var ErrNegativeLimit = errors.New("limit must not be negative")

// 候选来源
const (
	SourceFollowing = "following"
	SourceTrending  = "trending"
	SourcePromoted  = "promoted" // 预留
)

// 综合打分：baseWeight(source) * exp(-λ*ageHours) * (1 + log10(engagement+1))
const (
	weightFollowing = 1.0
	weightTrending  = 0.6
	weightPromoted  = 0.8
	decayLambda     = 0.02
)

// 版式常量：趋势位每 4 格一个（从第 4 格起），推荐用户卡固定插在第 4 格
const (
	trendingSlotEvery  = 4
	suggestionSlotIdx  = 3
	suggestionCount    = 3
)

const (
	itemTypePost        = "post"
	itemTypeSuggestions = "suggestions"
)

// FeedItem 一条装配好的 feed 条目
type FeedItem struct {
	Type        string               `json:"type"`
	Post        *cache.PostSnapshot  `json:"post,omitempty"`
	Source      string               `json:"source,omitempty"`
	Score       float64              `json:"score,omitempty"`
	Liked       bool                 `json:"liked,omitempty"`
	IsFollowing bool                 `json:"is_following,omitempty"`
	Suggestions []*model.User        `json:"suggestions,omitempty"`
}

// FeedPage 一页 feed；NextCursor 为空表示到底了
type FeedPage struct {
	Items      []*FeedItem `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// scoredPost 装配期间的瞬态候选，绝不落任何存储
type scoredPost struct {
	postID    string
	rawScore  float64 // 来源域原始分：时间线是创建毫秒，趋势是衰减互动分
	source    string
	composite float64
}

// FeedPolicy 装配参数
type FeedPolicy struct {
	DefaultLimit  int
	MaxLimit      int
	TrendingRatio float64
}

// FeedService 读路径装配器：无状态、请求级，可任意并发
type FeedService struct {
	timeline    *cache.TimelineCache
	outbox      *cache.TimelineCache
	snapshots   *cache.SnapshotCache
	relCache    *cache.RelationshipCache
	trending    *cache.TrendingCache
	relSvc      RelationshipService
	likeRepo    repository.LikeRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	collegeRepo repository.CollegeRepository
	writer      *BackgroundWriter
	policy      FeedPolicy
}

func NewFeedService(
	timeline, outbox *cache.TimelineCache,
	snapshots *cache.SnapshotCache,
	relCache *cache.RelationshipCache,
	trending *cache.TrendingCache,
	relSvc RelationshipService,
	likeRepo repository.LikeRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	collegeRepo repository.CollegeRepository,
	writer *BackgroundWriter,
	policy FeedPolicy,
) *FeedService {
	if policy.DefaultLimit <= 0 {
		policy.DefaultLimit = 20
	}
	if policy.MaxLimit <= 0 {
		policy.MaxLimit = 50
	}
	if policy.TrendingRatio <= 0 {
		policy.TrendingRatio = 0.25
	}
	return &FeedService{
		timeline:    timeline,
		outbox:      outbox,
		snapshots:   snapshots,
		relCache:    relCache,
		trending:    trending,
		relSvc:      relSvc,
		likeRepo:    likeRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		collegeRepo: collegeRepo,
		writer:      writer,
		policy:      policy,
	}
}

// GetFeed 装配个性化 feed。cursor<=0 表示第一页。基础设施退化不报错：
// 缓存全挂时走库回源，账号侧退化为 trending 补位。
func (s *FeedService) GetFeed(ctx context.Context, userID string, cursor float64, limit int) (*FeedPage, error) {
	limit, err := s.clampLimit(limit)
	if err != nil {
		return nil, err
	}

	// 1. following 候选：时间线缓存，miss 则回源重建并异步回填
	following, rebuilt := s.followingCandidates(ctx, userID, cursor, limit)

	// 2. trending 候选：固定页面占比
	trendCount := int(float64(limit) * s.policy.TrendingRatio)
	if trendCount < 1 {
		trendCount = 1
	}
	trendPage := s.trending.GetTrending(ctx, 0, trendCount)
	trendingCands := make([]scoredPost, 0, len(trendPage.PostIDs))
	for i, id := range trendPage.PostIDs {
		trendingCands = append(trendingCands, scoredPost{postID: id, rawScore: trendPage.Scores[i], source: SourceTrending})
	}

	// 3. 名人 outbox 合并（拉模式），并入 following 来源
	sourceIDs, serr := s.relSvc.SourceIDs(ctx, userID)
	if serr != nil {
		logger.Warn("feed: source ids unavailable", zap.String("user", userID), zap.Error(serr))
	}
	for _, celeb := range s.relCache.FilterCelebrities(ctx, sourceIDs) {
		page, ok := s.outbox.Get(ctx, celeb, cursor, limit)
		if !ok {
			continue
		}
		for i, id := range page.PostIDs {
			following = append(following, scoredPost{postID: id, rawScore: page.Scores[i], source: SourceFollowing})
		}
	}

	// 4+6. 先补水再综合打分（综合分需要互动量和年龄），去重保高分
	all := append(append([]scoredPost{}, following...), trendingCands...)
	snaps := s.hydrate(ctx, candidateIDs(all), rebuilt)
	now := time.Now()
	byID := make(map[string]scoredPost, len(all))
	for _, c := range all {
		snap := snaps[c.postID]
		if snap == nil {
			continue // not-found：静默丢弃而不是报错整页
		}
		c.composite = compositeScore(c.source, snap, now)
		if prev, ok := byID[c.postID]; !ok || c.composite > prev.composite {
			byID[c.postID] = c
		}
	}

	// 5. 交错：趋势位固定在每 4 格；趋势供给耗尽就静默用 following 补位，反之亦然
	followQ, trendQ := splitQueues(byID)
	ordered := interleave(followQ, trendQ, limit)

	// 7. 点赞状态 + 推荐用户两批独立查询并发执行
	ids := make([]string, len(ordered))
	for i, c := range ordered {
		ids[i] = c.postID
	}
	var (
		wg          sync.WaitGroup
		likeStatus  map[string]bool
		suggestions []*model.User
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		st, err := s.likeRepo.StatusForPosts(ctx, userID, ids)
		if err != nil {
			logger.Warn("feed: like status lookup failed", zap.Error(err))
			return
		}
		likeStatus = st
	}()
	go func() {
		defer wg.Done()
		sg, err := s.relSvc.Suggestions(ctx, userID, suggestionCount)
		if err != nil {
			logger.Warn("feed: suggestions lookup failed", zap.Error(err))
			return
		}
		suggestions = sg
	}()
	wg.Wait()

	sourceSet := lo.SliceToMap(sourceIDs, func(id string) (string, struct{}) { return id, struct{}{} })

	items := make([]*FeedItem, 0, len(ordered)+1)
	for _, c := range ordered {
		snap := snaps[c.postID]
		_, followsAuthor := sourceSet[snap.AuthorID]
		items = append(items, &FeedItem{
			Type:        itemTypePost,
			Post:        snap,
			Source:      c.source,
			Score:       c.composite,
			Liked:       likeStatus[c.postID],
			IsFollowing: followsAuthor || snap.AuthorID == userID,
		})
	}

	// 9. 翻页游标：取最后一个 following 候选的来源域分值；页没满说明到底了
	nextCursor := ""
	if len(ordered) == limit {
		for i := len(ordered) - 1; i >= 0; i-- {
			if ordered[i].source == SourceFollowing {
				nextCursor = formatCursor(ordered[i].rawScore)
				break
			}
		}
	}

	// 8. 辅助条目：推荐用户卡，每页至多一张，固定插在第 4 格
	if len(suggestions) > 0 && len(items) > suggestionSlotIdx {
		card := &FeedItem{Type: itemTypeSuggestions, Suggestions: suggestions}
		items = append(items[:suggestionSlotIdx], append([]*FeedItem{card}, items[suggestionSlotIdx:]...)...)
	}

	return &FeedPage{Items: items, NextCursor: nextCursor}, nil
}

// GetGuestFeed 未登录流量：只用游客趋势集合，无点赞/关注状态，无推荐卡
func (s *FeedService) GetGuestFeed(ctx context.Context, cursor float64, limit int) (*FeedPage, error) {
	limit, err := s.clampLimit(limit)
	if err != nil {
		return nil, err
	}
	metrics.FeedRequests.WithLabelValues("guest").Inc()

	page := s.trending.GetGuestFeed(ctx, cursor, limit+1)
	full := len(page.PostIDs) > limit
	if full {
		page.PostIDs = page.PostIDs[:limit]
		page.Scores = page.Scores[:limit]
	}

	snaps := s.hydrate(ctx, page.PostIDs, nil)
	items := make([]*FeedItem, 0, len(page.PostIDs))
	for i, id := range page.PostIDs {
		snap := snaps[id]
		if snap == nil {
			continue
		}
		items = append(items, &FeedItem{
			Type:   itemTypePost,
			Post:   snap,
			Source: SourceTrending,
			Score:  page.Scores[i],
		})
	}
	nextCursor := ""
	if full && len(page.Scores) > 0 {
		nextCursor = formatCursor(page.Scores[len(page.Scores)-1])
	}
	return &FeedPage{Items: items, NextCursor: nextCursor}, nil
}

// WarmCache 登录后主动触发时间线重建，避免首个请求冷启动
func (s *FeedService) WarmCache(userID string) {
	s.writer.Enqueue("warm:"+userID, func(ctx context.Context) {
		s.rebuildTimeline(ctx, userID, 0, s.policy.DefaultLimit)
	})
}

func (s *FeedService) clampLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, ErrNegativeLimit
	}
	if limit == 0 {
		limit = s.policy.DefaultLimit
	}
	if limit > s.policy.MaxLimit {
		limit = s.policy.MaxLimit
	}
	return limit, nil
}

// followingCandidates 时间线缓存读；全 miss 时同步回源一页并异步回填缓存。
// 返回候选和回源时已拿到的库行（供补水省一次查询）。
func (s *FeedService) followingCandidates(ctx context.Context, userID string, cursor float64, limit int) ([]scoredPost, map[string]*model.Post) {
	if page, ok := s.timeline.Get(ctx, userID, cursor, limit+1); ok {
		metrics.FeedRequests.WithLabelValues("cache").Inc()
		cands := make([]scoredPost, 0, len(page.PostIDs))
		for i, id := range page.PostIDs {
			cands = append(cands, scoredPost{postID: id, rawScore: page.Scores[i], source: SourceFollowing})
		}
		return cands, nil
	}

	metrics.FeedRequests.WithLabelValues("rebuild").Inc()
	posts := s.rebuildTimeline(ctx, userID, cursor, limit+1)
	cands := make([]scoredPost, 0, len(posts))
	byID := make(map[string]*model.Post, len(posts))
	for _, p := range posts {
		cands = append(cands, scoredPost{postID: p.ID, rawScore: float64(p.CreatedAt.UnixMilli()), source: SourceFollowing})
		byID[p.ID] = p
	}
	return cands, byID
}

// rebuildTimeline 按可见性规则查库并把拿到的一页写回时间线缓存（fire-and-forget）
func (s *FeedService) rebuildTimeline(ctx context.Context, userID string, cursor float64, limit int) []*model.Post {
	sourceIDs, err := s.relSvc.SourceIDs(ctx, userID)
	if err != nil {
		logger.Warn("feed rebuild: source ids failed", zap.String("user", userID), zap.Error(err))
	}
	connectedIDs, err := s.relSvc.ConnectionUserIDs(ctx, userID)
	if err != nil {
		connectedIDs = nil
	}
	collegeIDs, err := s.collegeRepo.CollegeIDs(ctx, userID)
	if err != nil {
		collegeIDs = nil
	}

	posts, err := s.postRepo.FindFeedCandidates(ctx, repository.FeedCandidateQuery{
		ViewerID:     userID,
		AuthorIDs:    sourceIDs,
		ConnectedIDs: connectedIDs,
		CollegeIDs:   collegeIDs,
		Cursor:       int64(cursor),
		Limit:        limit,
	})
	if err != nil {
		// 库也不可用：这一页退化为 trending-only
		logger.Warn("feed rebuild: db fallback failed", zap.String("user", userID), zap.Error(err))
		return nil
	}

	page := cache.Page{
		PostIDs: make([]string, len(posts)),
		Scores:  make([]float64, len(posts)),
	}
	for i, p := range posts {
		page.PostIDs[i] = p.ID
		page.Scores[i] = float64(p.CreatedAt.UnixMilli())
	}
	s.writer.Enqueue("timeline:"+userID, func(ctx context.Context) {
		s.timeline.Populate(ctx, userID, page)
	})
	return posts
}

// hydrate 快照缓存批量读，miss 的 id 合并成一次库查询并异步回填。
// 库查询失败（含超时）时只返回已从缓存拿到的部分，不整页报错。
func (s *FeedService) hydrate(ctx context.Context, postIDs []string, preloaded map[string]*model.Post) map[string]*cache.PostSnapshot {
	snaps := s.snapshots.GetPosts(ctx, postIDs)

	missing := make([]string, 0)
	for id, snap := range snaps {
		if snap != nil {
			continue
		}
		if _, ok := preloaded[id]; !ok {
			missing = append(missing, id)
		}
	}

	rows := make([]*model.Post, 0, len(missing)+len(preloaded))
	for _, p := range preloaded {
		if snaps[p.ID] == nil {
			rows = append(rows, p)
		}
	}
	if len(missing) > 0 {
		found, err := s.postRepo.FindByIDs(ctx, missing)
		if err != nil {
			logger.Warn("feed hydrate: db fallback failed, serving partial page", zap.Error(err))
			found = nil
		}
		rows = append(rows, found...)
	}
	if len(rows) == 0 {
		return snaps
	}

	authorIDs := lo.Uniq(lo.Map(rows, func(p *model.Post, _ int) string { return p.AuthorID }))
	authors, err := s.userRepo.FindByIDs(ctx, authorIDs)
	if err != nil {
		authors = nil
	}
	for _, p := range rows {
		snap := cache.SnapshotFromPost(p, authors[p.AuthorID])
		snaps[p.ID] = snap
		s.writer.Enqueue("snapshot:"+p.ID, func(ctx context.Context) {
			s.snapshots.CachePost(ctx, snap)
		})
	}
	return snaps
}

func candidateIDs(cands []scoredPost) []string {
	return lo.Uniq(lo.Map(cands, func(c scoredPost, _ int) string { return c.postID }))
}

func compositeScore(source string, snap *cache.PostSnapshot, now time.Time) float64 {
	base := weightFollowing
	switch source {
	case SourceTrending:
		base = weightTrending
	case SourcePromoted:
		base = weightPromoted
	}
	ageHours := now.Sub(time.UnixMilli(snap.CreatedAtMs)).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return base * math.Exp(-decayLambda*ageHours) * (1 + math.Log10(float64(snap.Engagement())+1))
}

func splitQueues(byID map[string]scoredPost) (followQ, trendQ []scoredPost) {
	for _, c := range byID {
		if c.source == SourceTrending {
			trendQ = append(trendQ, c)
		} else {
			followQ = append(followQ, c)
		}
	}
	sort.Slice(followQ, func(i, j int) bool { return followQ[i].composite > followQ[j].composite })
	sort.Slice(trendQ, func(i, j int) bool { return trendQ[i].composite > trendQ[j].composite })
	return followQ, trendQ
}

// interleave 按版式走 1..limit：趋势保留位取下一个趋势候选，
// 其余位置取 following；任一边耗尽就用另一边补满
func interleave(followQ, trendQ []scoredPost, limit int) []scoredPost {
	out := make([]scoredPost, 0, limit)
	for pos := 1; pos <= limit; pos++ {
		var next scoredPost
		switch {
		case pos%trendingSlotEvery == 0 && len(trendQ) > 0:
			next, trendQ = trendQ[0], trendQ[1:]
		case len(followQ) > 0:
			next, followQ = followQ[0], followQ[1:]
		case len(trendQ) > 0:
			next, trendQ = trendQ[0], trendQ[1:]
		default:
			return out
		}
		out = append(out, next)
	}
	return out
}

// formatCursor 游标必须按原值精确往返，所以直接用分值的最短十进制表示
func formatCursor(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ParseCursor 边界层解析游标；空串 = 第一页
func ParseCursor(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, errors.New("malformed cursor")
	}
	return v, nil
}
