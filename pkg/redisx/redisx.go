package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campushq/feedengine/config"
)

// InitClient 建立 Redis 客户端。ping 失败也返回可用的 client：
// 缓存层不可用按 miss 处理，连接错误在每次命令时暴露并被各缓存组件吞掉。
func InitClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return client, err
	}
	return client, nil
}
