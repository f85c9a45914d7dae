package handler

import (
	"github.com/campushq/feedengine/internal/service"
)

// Handler 聚合全部 HTTP 处理器依赖
type Handler struct {
	feedSvc *service.FeedService
	postSvc *service.PostService
	likeSvc *service.LikeService
	relSvc  service.RelationshipService
}

func New(feedSvc *service.FeedService, postSvc *service.PostService, likeSvc *service.LikeService, relSvc service.RelationshipService) *Handler {
	return &Handler{feedSvc: feedSvc, postSvc: postSvc, likeSvc: likeSvc, relSvc: relSvc}
}
