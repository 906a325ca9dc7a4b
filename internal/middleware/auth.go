package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenHeader 不带 Authorization 时读取的令牌请求头
const TokenHeader = "X-API-Token"

// AuthMiddleware 认证中间件
// 检查请求是否携带与配置一致的 token：Authorization: Bearer 优先，其次 X-API-Token
func AuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		apiToken := strings.TrimSpace(c.GetHeader(TokenHeader))
		if authHeader == "" && apiToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "未提供认证令牌",
			})
			c.Abort()
			return
		}

		token := apiToken
		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				token = ""
			}
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "认证令牌格式错误",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "无效的认证令牌",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
