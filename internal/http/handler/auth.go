package handler

import (
	"net/http"
	"strings"

	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/domain"
	"github.com/Dinuka-Nonis/lab-sheet-generator-cloud/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userContextKey = "auth.user"

// APIKeyAuth 校验 Authorization: Bearer sk_xxx，
// 通过后把用户放进请求上下文
func APIKeyAuth(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		key, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !strings.HasPrefix(key, "sk_") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed api key"})
			return
		}
		u, err := repo.GetUserByAPIKey(c.Request.Context(), db, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Set(userContextKey, u)
		c.Next()
	}
}

// CurrentUser 取出中间件放入的用户，只能在 APIKeyAuth 之后调用
func CurrentUser(c *gin.Context) *domain.User {
	v, _ := c.Get(userContextKey)
	u, _ := v.(*domain.User)
	return u
}
