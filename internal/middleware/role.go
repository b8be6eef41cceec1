package middleware

import (
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
)

// RequireRole 角色检查中间件
// 需在 TicketAuth 之后使用，角色取自已校验票据
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			response.Error(c, response.CodeNotLoggedIn)
			c.Abort()
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		response.ErrorWithMsg(c, response.CodeForbidden, "没有权限执行此操作")
		c.Abort()
	}
}
