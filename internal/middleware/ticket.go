// Package middleware 中间件
package middleware

import (
	"errors"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上下文键
const (
	ContextUserID  = "user_id"
	ContextRole    = "role"
	ContextSession = "session"
	ContextTicket  = "ticket"
)

// HeaderTicketRenewed 自动续期后返回的响应头
const HeaderTicketRenewed = "X-Ticket-Renewed"

// TicketAuth 票据认证中间件
// 每个请求校验会话中的 TGT，剩余时间不足阈值时透明续期
func TicketAuth(authSvc service.TicketAuthService, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookie.Name)
		if err != nil || sessionID == "" {
			response.Error(c, response.CodeNotLoggedIn)
			c.Abort()
			return
		}

		result, err := authSvc.Authorize(c.Request.Context(), sessionID, ClientInfo(c))
		if err != nil {
			if sessionGone(err) {
				ClearSessionCookie(c, cookie)
			}
			abortWithTicketError(c, err)
			return
		}

		if result.Renewed {
			c.Header(HeaderTicketRenewed, "true")
		}

		// 身份只取自已校验的票据，会话里的副本不可信
		session := result.Session
		c.Set(ContextUserID, session.Ticket.UserID)
		c.Set(ContextRole, session.Ticket.Role)
		c.Set(ContextSession, session)
		c.Set(ContextTicket, session.Ticket)

		c.Next()
	}
}

// ClientInfo 提取请求方地址与 UA
func ClientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		Address:   c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// GetSession 获取当前会话
func GetSession(c *gin.Context) *model.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	session, _ := v.(*model.Session)
	return session
}

// sessionGone 会话已不存在或已被作废
func sessionGone(err error) bool {
	return errors.Is(err, service.ErrSessionNotFound) ||
		errors.Is(err, service.ErrSessionExpired) ||
		errors.Is(err, service.ErrTicketRevoked) ||
		ticket.ReasonOf(err) != 0
}

// abortWithTicketError 按失败原因返回错误码
func abortWithTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		response.Error(c, response.CodeNotLoggedIn)
	case errors.Is(err, service.ErrTicketRevoked):
		response.Error(c, response.CodeTicketRevoked)
	case ticket.ReasonOf(err) != 0:
		response.Error(c, response.TicketCode(ticket.ReasonOf(err)))
	default:
		GetLogger().Error("票据校验异常", zap.Error(err))
		response.Error(c, response.CodeServerError)
	}
	c.Abort()
}
