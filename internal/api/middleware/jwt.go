package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// TokenCookieName 存放会话 Token 的 Cookie 名称。
const TokenCookieName = "token"

// AuthMiddleware 校验请求携带的 JWT 并将 userID 写入上下文。
//
// Token 可以放在 Authorization: Bearer 头里，也可以放在 token Cookie 里，
// 头优先。缺失或校验失败直接 401 终止，后续 handler 不会执行。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			metrics.AuthRejectedTotal.Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			c.Abort()
			return
		}

		userID, err := auth.VerifyToken(tokenStr, secret, time.Now())
		if err != nil {
			metrics.AuthRejectedTotal.Inc()
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookieName); err == nil {
		return cookie
	}
	return ""
}
