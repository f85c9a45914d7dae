// Package cache holds the Redis-backed cache tier for the feed subsystem.
// Every component here is advisory: a backend failure is logged and reported
// as a miss or no-op, never as an error to the caller. All cached state is
// rebuildable from the relational store.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	timelineKeyPrefix = "feed:timeline:"
	outboxKeyPrefix   = "feed:outbox:"
	snapshotKeyPrefix = "feed:post:"
	relationKeyPrefix = "feed:rel:"
	celebritySetKey   = "feed:celebrities"
	trendingKey       = "feed:trending:posts"
	guestFeedKey      = "feed:trending:guest"
)

func snapshotKey(postID string) string { return snapshotKeyPrefix + postID }
func relationKey(userID string) string { return relationKeyPrefix + userID }

// Page is one cursor-bounded slice of a score-ordered id collection.
type Page struct {
	PostIDs []string
	Scores  []float64
}

// zRevPage reads up to limit members of key strictly below cursor, descending.
// cursor <= 0 means "from the top".
func zRevPage(ctx context.Context, rdb *redis.Client, key string, cursor float64, limit int) (Page, error) {
	max := "+inf"
	if cursor > 0 {
		// exclusive upper bound so pages never overlap
		max = "(" + strconv.FormatFloat(cursor, 'f', -1, 64)
	}
	zs, err := rdb.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   max,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return Page{}, err
	}
	page := Page{
		PostIDs: make([]string, 0, len(zs)),
		Scores:  make([]float64, 0, len(zs)),
	}
	for _, z := range zs {
		page.PostIDs = append(page.PostIDs, fmt.Sprint(z.Member))
		page.Scores = append(page.Scores, z.Score)
	}
	return page, nil
}
