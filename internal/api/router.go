package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campushq/feedengine/config"
	"github.com/campushq/feedengine/internal/api/handler"
	"github.com/campushq/feedengine/internal/api/middleware"
)

// NewRouter 装配全部路由与中间件
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	v1 := r.Group("/api/v1")
	v1.GET("/feed/guest", h.GetGuestFeed)

	auth := v1.Group("", middleware.Auth(cfg.Auth.JWTSecret))
	{
		auth.GET("/feed", h.GetFeed)
		auth.POST("/feed/warm", h.WarmFeedCache)

		auth.POST("/posts", h.PublishPost)
		auth.DELETE("/posts/:post_id", h.DeletePost)
		auth.POST("/posts/:post_id/like", h.LikePost)
		auth.DELETE("/posts/:post_id/like", h.UnlikePost)

		auth.POST("/relations/follow", h.Follow)
		auth.POST("/relations/unfollow", h.Unfollow)
		auth.POST("/relations/connect", h.Connect)
		auth.POST("/relations/disconnect", h.Disconnect)
		auth.GET("/relations/suggestions", h.ListSuggestions)
	}
	return r
}
