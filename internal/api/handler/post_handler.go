package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/campushq/feedengine/internal/api/middleware"
	"github.com/campushq/feedengine/internal/repository"
	"github.com/campushq/feedengine/internal/service"
	"github.com/campushq/feedengine/pkg/response"
)

type publishRequest struct {
	Content    string `json:"content" binding:"required"`
	MediaURLs  string `json:"media_urls"`
	Visibility string `json:"visibility" binding:"omitempty,oneof=public connections college private"`
	CollegeID  string `json:"college_id"`
}

// PublishPost 发帖
// @Summary 发布帖子
// @Tags post
// @Accept json
// @Produce json
// @Param request body publishRequest true "帖子内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) PublishPost(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.postSvc.Publish(c.Request.Context(), service.PublishInput{
		AuthorID:   middleware.UserID(c),
		Content:    req.Content,
		MediaURLs:  req.MediaURLs,
		Visibility: req.Visibility,
		CollegeID:  req.CollegeID,
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"post_id": post.ID})
}

// DeletePost 删帖（软删 + 各级缓存清理由事件驱动）
// @Summary 删除帖子
// @Tags post
// @Produce json
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	err := h.postSvc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("post_id"))
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, service.ErrNotPostAuthor):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, nil)
	}
}

// LikePost 点赞
// @Summary 点赞帖子
// @Tags post
// @Produce json
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	if err := h.likeSvc.Like(c.Request.Context(), middleware.UserID(c), c.Param("post_id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnlikePost 取消点赞
// @Summary 取消点赞
// @Tags post
// @Produce json
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	if err := h.likeSvc.Unlike(c.Request.Context(), middleware.UserID(c), c.Param("post_id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
