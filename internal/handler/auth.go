// Package handler HTTP 处理器
package handler

import (
	"errors"

	"github.com/bpalanga/cryptoweb/internal/middleware"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	ticketAuth  service.TicketAuthService
	authService service.AuthService
	tickets     ticket.Service
	cookie      middleware.CookieConfig
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(ticketAuth service.TicketAuthService, authSvc service.AuthService, tickets ticket.Service, cookie middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{
		ticketAuth:  ticketAuth,
		authService: authSvc,
		tickets:     tickets,
		cookie:      cookie,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	UserID   string `json:"userid" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Login 用户登录，认证成功后签发 TGT 并建立会话
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	session, err := h.ticketAuth.Login(c.Request.Context(), req.UserID, req.Password, middleware.ClientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, response.CodeInvalidCredentials)
		case errors.Is(err, service.ErrAccountLocked):
			response.Error(c, response.CodeAccountLocked)
		default:
			middleware.GetLogger().Error("登录失败", zap.Error(err))
			response.Error(c, response.CodeServerError)
		}
		return
	}

	middleware.SetSessionCookie(c, h.cookie, session.ID, session.ExpiresAt)

	response.SuccessWithMsg(c, "认证成功，已签发 TGT", gin.H{
		"userid":    session.UserID,
		"role":      session.Role,
		"full_name": session.FullName,
		"ticket":    h.tickets.Inspect(session.Ticket),
	})
}

// Logout 用户登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(h.cookie.Name)
	if err == nil && sessionID != "" {
		if err := h.ticketAuth.Logout(c.Request.Context(), sessionID, middleware.ClientInfo(c)); err != nil {
			response.Error(c, response.CodeServerError)
			return
		}
	}
	middleware.ClearSessionCookie(c, h.cookie)
	response.SuccessWithMsg(c, "已登出", nil)
}

// GetCurrentUser 获取当前用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		response.Error(c, response.CodeNotLoggedIn)
		return
	}

	response.Success(c, gin.H{
		"userid":     session.UserID,
		"role":       session.Role,
		"full_name":  session.FullName,
		"ip_address": session.IPAddress,
		"created_at": session.CreatedAt,
		"expires_at": session.ExpiresAt,
	})
}

// ChangePassword 修改当前用户密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.ErrorWithMsg(c, response.CodeInvalidCredentials, "原密码错误")
		case errors.Is(err, service.ErrUserNotFound):
			response.Error(c, response.CodeUserNotFound)
		case errors.Is(err, service.ErrPasswordTooShort):
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.SuccessWithMsg(c, "密码修改成功", nil)
}
