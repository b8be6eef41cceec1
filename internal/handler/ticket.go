package handler

import (
	"errors"
	"io"

	"github.com/bpalanga/cryptoweb/internal/middleware"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TicketHandler 票据处理器
type TicketHandler struct {
	ticketAuth service.TicketAuthService
	tickets    ticket.Service
	handoff    service.HandoffService
	cookie     middleware.CookieConfig
}

// NewTicketHandler 创建票据处理器
func NewTicketHandler(ticketAuth service.TicketAuthService, tickets ticket.Service, handoff service.HandoffService, cookie middleware.CookieConfig) *TicketHandler {
	return &TicketHandler{
		ticketAuth: ticketAuth,
		tickets:    tickets,
		handoff:    handoff,
		cookie:     cookie,
	}
}

// ServiceTicketRequest 换取服务票据请求
type ServiceTicketRequest struct {
	Service string `json:"service"`
}

// VerifyServiceTokenRequest 下游服务校验令牌请求
type VerifyServiceTokenRequest struct {
	Token   string `json:"token" binding:"required"`
	Service string `json:"service" binding:"required"`
}

// Status 当前票据状态
// GET /api/v1/ticket
func (h *TicketHandler) Status(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil || session.Ticket == nil {
		response.Error(c, response.CodeTicketMissing)
		return
	}

	cfg := h.tickets.Config()
	response.Success(c, gin.H{
		"ticket":                    h.tickets.Inspect(session.Ticket),
		"needs_renewal":             h.tickets.NeedsRenewal(session.Ticket),
		"renewal_threshold_seconds": int64(cfg.RenewalThreshold.Seconds()),
		"ticket_renewed_at":         session.TicketRenewedAt,
	})
}

// Renew 手动续期
// POST /api/v1/ticket/renew
func (h *TicketHandler) Renew(c *gin.Context) {
	sessionID, err := c.Cookie(h.cookie.Name)
	if err != nil || sessionID == "" {
		response.Error(c, response.CodeNotLoggedIn)
		return
	}

	session, err := h.ticketAuth.Renew(c.Request.Context(), sessionID, middleware.ClientInfo(c))
	if err != nil {
		writeTicketError(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookie, session.ID, session.ExpiresAt)
	response.SuccessWithMsg(c, "票据已续期", h.tickets.Inspect(session.Ticket))
}

// IssueServiceTicket 用当前 TGT 换取服务票据
// POST /api/v1/ticket/service
func (h *TicketHandler) IssueServiceTicket(c *gin.Context) {
	var req ServiceTicketRequest
	// 请求体可省略，省略时换取主服务票据
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}
	if req.Service == "" {
		req.Service = h.tickets.Config().PrimaryService
	}

	grant, err := h.ticketAuth.Exchange(c.Request.Context(), middleware.GetSession(c), req.Service, middleware.ClientInfo(c))
	if err != nil {
		writeTicketError(c, err)
		return
	}

	response.Success(c, grant)
}

// VerifyServiceToken 校验服务票据令牌
// POST /api/v1/ticket/service/verify
func (h *TicketHandler) VerifyServiceToken(c *gin.Context) {
	var req VerifyServiceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	claims, err := h.handoff.Verify(req.Token, req.Service)
	if err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidToken, err.Error())
		return
	}

	response.Success(c, gin.H{
		"principal":      claims.Subject,
		"userid":         claims.UserID,
		"role":           claims.Role,
		"service":        req.Service,
		"client_address": claims.ClientAddress,
		"from_tgt":       claims.FromTGT,
		"expires_at":     claims.ExpiresAt.Unix(),
	})
}

// writeTicketError 票据相关错误转响应
func writeTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ticket.ErrServiceNameEmpty):
		response.Error(c, response.CodeServiceNameEmpty)
	case errors.Is(err, service.ErrTicketRevoked):
		response.Error(c, response.CodeTicketRevoked)
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		response.Error(c, response.CodeNotLoggedIn)
	case ticket.ReasonOf(err) != 0:
		response.Error(c, response.TicketCode(ticket.ReasonOf(err)))
	default:
		middleware.GetLogger().Error("票据操作失败", zap.Error(err))
		response.Error(c, response.CodeServerError)
	}
}
