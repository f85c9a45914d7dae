package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushq/feedengine/internal/api/middleware"
	"github.com/campushq/feedengine/internal/service"
	"github.com/campushq/feedengine/pkg/response"
)

// parseFeedQuery 边界校验：坏游标、越界 limit 在进入核心之前拒绝
func parseFeedQuery(c *gin.Context) (cursor float64, limit int, ok bool) {
	cursor, err := service.ParseCursor(c.Query("cursor"))
	if err != nil {
		response.BadRequest(c, "malformed cursor")
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		response.BadRequest(c, "limit must be a non-negative integer")
		return 0, 0, false
	}
	return cursor, limit, true
}

// GetFeed 个性化 feed
// @Summary 获取个性化 feed
// @Tags feed
// @Produce json
// @Param cursor query string false "上一页返回的游标"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Failure 400 {object} response.Response
// @Router /api/v1/feed [get]
func (h *Handler) GetFeed(c *gin.Context) {
	cursor, limit, ok := parseFeedQuery(c)
	if !ok {
		return
	}
	page, err := h.feedSvc.GetFeed(c.Request.Context(), middleware.UserID(c), cursor, limit)
	if err != nil {
		if errors.Is(err, service.ErrNegativeLimit) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, page)
}

// GetGuestFeed 游客 feed（只含趋势内容）
// @Summary 获取游客 feed
// @Tags feed
// @Produce json
// @Param cursor query string false "上一页返回的游标"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Router /api/v1/feed/guest [get]
func (h *Handler) GetGuestFeed(c *gin.Context) {
	cursor, limit, ok := parseFeedQuery(c)
	if !ok {
		return
	}
	page, err := h.feedSvc.GetGuestFeed(c.Request.Context(), cursor, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, page)
}

// WarmFeedCache 登录后预热时间线缓存
// @Summary 预热当前用户的时间线缓存
// @Tags feed
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/feed/warm [post]
func (h *Handler) WarmFeedCache(c *gin.Context) {
	h.feedSvc.WarmCache(middleware.UserID(c))
	response.Success(c, nil)
}
