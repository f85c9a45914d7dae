package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// FeedConfig feed 子系统的全部可调参数
type FeedConfig struct {
	TimelineCap        int           `mapstructure:"timeline_cap"`
	TimelineTTL        time.Duration `mapstructure:"timeline_ttl"`
	OutboxCap          int           `mapstructure:"outbox_cap"`
	OutboxTTL          time.Duration `mapstructure:"outbox_ttl"`
	SnapshotTTL        time.Duration `mapstructure:"snapshot_ttl"`
	RelationshipTTL    time.Duration `mapstructure:"relationship_ttl"`
	CelebrityThreshold int           `mapstructure:"celebrity_threshold"`

	TrendingInterval time.Duration `mapstructure:"trending_interval"`
	TrendingWarmup   time.Duration `mapstructure:"trending_warmup"`
	TrendingWindow   time.Duration `mapstructure:"trending_window"`
	TrendingMaxRows  int           `mapstructure:"trending_max_rows"`
	TrendingTopK     int           `mapstructure:"trending_top_k"`
	GuestFeedTopK    int           `mapstructure:"guest_feed_top_k"`
	TrendingTTL      time.Duration `mapstructure:"trending_ttl"`

	DefaultLimit  int     `mapstructure:"default_limit"`
	MaxLimit      int     `mapstructure:"max_limit"`
	TrendingRatio float64 `mapstructure:"trending_ratio"`

	WriterQueueSize int `mapstructure:"writer_queue_size"`
	WriterWorkers   int `mapstructure:"writer_workers"`
}

// Load 读取配置：config.yaml 可选，环境变量（FEED_ 前缀）覆盖
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("FEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)

	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=feedengine port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 64)

	v.SetDefault("auth.jwt_secret", "dev-secret")

	v.SetDefault("feed.timeline_cap", 500)
	v.SetDefault("feed.timeline_ttl", 72*time.Hour)
	v.SetDefault("feed.outbox_cap", 50)
	v.SetDefault("feed.outbox_ttl", 72*time.Hour)
	v.SetDefault("feed.snapshot_ttl", 30*time.Minute)
	v.SetDefault("feed.relationship_ttl", 10*time.Minute)
	v.SetDefault("feed.celebrity_threshold", 10000)

	v.SetDefault("feed.trending_interval", 5*time.Minute)
	v.SetDefault("feed.trending_warmup", 10*time.Second)
	v.SetDefault("feed.trending_window", 48*time.Hour)
	v.SetDefault("feed.trending_max_rows", 5000)
	v.SetDefault("feed.trending_top_k", 300)
	v.SetDefault("feed.guest_feed_top_k", 50)
	v.SetDefault("feed.trending_ttl", 15*time.Minute)

	v.SetDefault("feed.default_limit", 20)
	v.SetDefault("feed.max_limit", 50)
	v.SetDefault("feed.trending_ratio", 0.25)

	v.SetDefault("feed.writer_queue_size", 10000)
	v.SetDefault("feed.writer_workers", 4)
}
