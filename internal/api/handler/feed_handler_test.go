package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// 边界校验在触达核心装配器之前就拒绝，所以这里不需要真实依赖
func boundaryRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, nil, nil)
	r := gin.New()
	r.GET("/feed", h.GetFeed)
	r.GET("/feed/guest", h.GetGuestFeed)
	return r
}

func TestGetFeedRejectsMalformedCursor(t *testing.T) {
	r := boundaryRouter()
	for _, cursor := range []string{"abc", "-1", "1e999x"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/feed?cursor="+cursor, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "cursor %q", cursor)
	}
}

func TestGetFeedRejectsBadLimit(t *testing.T) {
	r := boundaryRouter()
	for _, limit := range []string{"-1", "abc", "1.5"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/feed?limit="+limit, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %q", limit)
	}
}

func TestGuestFeedRejectsMalformedCursor(t *testing.T) {
	r := boundaryRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed/guest?cursor=zzz", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
