package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campushq/feedengine/pkg/response"
)

const ContextUserID = "user_id"

// Auth 校验外部认证服务签发的 Bearer token，解析出请求方 userID。
// 会话管理本身不在本服务内。
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			response.Unauthorized(c, "invalid token subject")
			c.Abort()
			return
		}
		c.Set(ContextUserID, sub)
		c.Next()
	}
}

// UserID 取出 Auth 中间件解析的用户 id
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
