package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushq/feedengine/internal/api/middleware"
	"github.com/campushq/feedengine/pkg/response"
)

type relationRequest struct {
	ToUserID string `json:"to_user_id" binding:"required"`
}

// Follow 建立关注（扇出路径经事件异步处理）
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.Follow(c.Request.Context(), middleware.UserID(c), req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.Unfollow(c.Request.Context(), middleware.UserID(c), req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// Connect 接受人脉（双向）
// @Summary 建立人脉关系
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "对方用户"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/connect [post]
func (h *Handler) Connect(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.Connect(c.Request.Context(), middleware.UserID(c), req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// Disconnect 解除人脉
// @Summary 解除人脉关系
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body relationRequest true "对方用户"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/disconnect [post]
func (h *Handler) Disconnect(c *gin.Context) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.Disconnect(c.Request.Context(), middleware.UserID(c), req.ToUserID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// ListSuggestions 推荐关注
// @Summary 查询推荐用户
// @Tags 关系链
// @Produce json
// @Param limit query int false "数量" default(5)
// @Success 200 {object} response.Response
// @Router /api/v1/relations/suggestions [get]
func (h *Handler) ListSuggestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	list, err := h.relSvc.Suggestions(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}
