package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"go.uber.org/zap"
)

// ErrTicketRevoked 票据已被撤销
var ErrTicketRevoked = errors.New("票据已被撤销")

// ClientInfo 请求方信息
type ClientInfo struct {
	Address   string
	UserAgent string
}

// AuthorizeResult 请求鉴权结果
type AuthorizeResult struct {
	Session *model.Session
	Renewed bool
}

// ServiceGrant 换取的服务票据及其令牌
type ServiceGrant struct {
	Ticket *ticket.ServiceTicket `json:"service_ticket"`
	Token  string                `json:"token"`
}

// TicketAuthService 会话与票据的调用方编排：登录签发、每请求校验与自动续期、服务票据换取、登出
type TicketAuthService interface {
	Login(ctx context.Context, userID, password string, client ClientInfo) (*model.Session, error)
	// Authorize 校验会话中的 TGT，剩余时间不足阈值时自动续期并写回会话
	// 校验失败时会话被删除，调用方需要重新登录
	Authorize(ctx context.Context, sessionID string, client ClientInfo) (*AuthorizeResult, error)
	// Renew 手动续期，失败时保留会话
	Renew(ctx context.Context, sessionID string, client ClientInfo) (*model.Session, error)
	Exchange(ctx context.Context, session *model.Session, serviceName string, client ClientInfo) (*ServiceGrant, error)
	Logout(ctx context.Context, sessionID string, client ClientInfo) error
}

// TicketAuthConfig 编排服务依赖
type TicketAuthConfig struct {
	Auth          AuthService
	Tickets       ticket.Service
	Sessions      SessionService
	Handoff       HandoffService
	Sink          ticket.EventSink
	Revocations   RevocationList // 为 nil 时不撤销旧票据
	SessionExpiry time.Duration
	Logger        *zap.Logger
}

type ticketAuthService struct {
	TicketAuthConfig
}

// NewTicketAuthService 创建编排服务
func NewTicketAuthService(cfg TicketAuthConfig) TicketAuthService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = NewZapEventSink(cfg.Logger)
	}
	if cfg.SessionExpiry <= 0 {
		cfg.SessionExpiry = cfg.Tickets.Config().Lifetime
	}
	return &ticketAuthService{TicketAuthConfig: cfg}
}

func (s *ticketAuthService) Login(ctx context.Context, userID, password string, client ClientInfo) (*model.Session, error) {
	principal, err := s.Auth.VerifyCredentials(ctx, userID, password)
	if err != nil {
		s.record(ctx, ticket.EventAuthFailed, userID, "认证失败: "+err.Error(), client)
		return nil, err
	}

	tk, err := s.Tickets.Issue(principal.UserID, principal.Role, client.Address)
	if err != nil {
		return nil, fmt.Errorf("签发 TGT 失败: %w", err)
	}

	session := &model.Session{
		UserID:    principal.UserID,
		Role:      principal.Role,
		FullName:  principal.FullName,
		Ticket:    tk,
		IPAddress: client.Address,
		UserAgent: client.UserAgent,
		ExpiresAt: s.sessionExpiry(tk),
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.record(ctx, ticket.EventTGTIssued, principal.UserID, "认证成功，已签发 TGT", client)
	return session, nil
}

func (s *ticketAuthService) Authorize(ctx context.Context, sessionID string, client ClientInfo) (*AuthorizeResult, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.check(ctx, session.Ticket, client.Address); err != nil {
		// 撤销列表不可用等基础设施错误不代表票据无效，保留会话
		if ticket.ReasonOf(err) == 0 && !errors.Is(err, ErrTicketRevoked) {
			return nil, err
		}
		_ = s.Sessions.Delete(ctx, sessionID)
		s.record(ctx, ticket.EventValidationFailed, session.UserID, err.Error(), client)
		return nil, err
	}

	result := &AuthorizeResult{Session: session}
	if !s.Tickets.NeedsRenewal(session.Ticket) {
		return result, nil
	}

	// 自动续期失败不影响本次请求，旧票据仍然有效
	if err := s.renewInto(ctx, session, client); err != nil {
		s.Logger.Warn("自动续期失败", zap.String("userid", session.UserID), zap.Error(err))
		return result, nil
	}
	result.Renewed = true
	s.record(ctx, ticket.EventTicketRenewed, session.UserID, "票据已自动续期", client)
	return result, nil
}

func (s *ticketAuthService) Renew(ctx context.Context, sessionID string, client ClientInfo) (*model.Session, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.renewInto(ctx, session, client); err != nil {
		s.record(ctx, ticket.EventValidationFailed, session.UserID, "续期失败: "+err.Error(), client)
		return nil, err
	}
	s.record(ctx, ticket.EventTicketRenewed, session.UserID, "票据已手动续期", client)
	return session, nil
}

func (s *ticketAuthService) Exchange(ctx context.Context, session *model.Session, serviceName string, client ClientInfo) (*ServiceGrant, error) {
	if session == nil {
		return nil, ticket.ErrMissingTicket
	}
	if err := s.checkRevoked(ctx, session.Ticket); err != nil {
		return nil, err
	}
	st, err := s.Tickets.Exchange(session.Ticket, client.Address, serviceName)
	if err != nil {
		s.record(ctx, ticket.EventValidationFailed, session.UserID, "换取服务票据失败: "+err.Error(), client)
		return nil, err
	}

	grant := &ServiceGrant{Ticket: st}
	if s.Handoff != nil {
		token, err := s.Handoff.Sign(st)
		if err != nil {
			return nil, err
		}
		grant.Token = token
	}

	s.record(ctx, ticket.EventServiceTicketIssued, session.UserID, "已签发服务票据: "+serviceName, client)
	return grant, nil
}

func (s *ticketAuthService) Logout(ctx context.Context, sessionID string, client ClientInfo) error {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil
		}
		return err
	}
	if s.Revocations != nil {
		if err := s.Revocations.Revoke(ctx, session.Ticket); err != nil {
			s.Logger.Warn("登出时撤销票据失败", zap.String("userid", session.UserID), zap.Error(err))
		}
	}
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.record(ctx, ticket.EventLogout, session.UserID, "用户已登出", client)
	return nil
}

// renewInto 续期会话中的票据并写回
func (s *ticketAuthService) renewInto(ctx context.Context, session *model.Session, client ClientInfo) error {
	if err := s.checkRevoked(ctx, session.Ticket); err != nil {
		return err
	}
	old := session.Ticket
	renewed, err := s.Tickets.Renew(old, client.Address)
	if err != nil {
		return err
	}

	now := time.Now()
	session.Ticket = renewed
	session.TicketRenewedAt = &now
	if exp := s.sessionExpiry(renewed); exp.After(session.ExpiresAt) {
		session.ExpiresAt = exp
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return err
	}

	if s.Revocations != nil {
		if err := s.Revocations.Revoke(ctx, old); err != nil {
			s.Logger.Warn("撤销旧票据失败", zap.String("userid", session.UserID), zap.Error(err))
		}
	}
	return nil
}

func (s *ticketAuthService) check(ctx context.Context, tk *ticket.Ticket, address string) error {
	if err := s.checkRevoked(ctx, tk); err != nil {
		return err
	}
	return s.Tickets.Validate(tk, address)
}

func (s *ticketAuthService) checkRevoked(ctx context.Context, tk *ticket.Ticket) error {
	if s.Revocations == nil || tk == nil {
		return nil
	}
	revoked, err := s.Revocations.IsRevoked(ctx, tk)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTicketRevoked
	}
	return nil
}

// sessionExpiry 会话至少存活到票据过期
func (s *ticketAuthService) sessionExpiry(tk *ticket.Ticket) time.Time {
	exp := time.Now().Add(s.SessionExpiry)
	if tkExp := time.Unix(tk.ExpiresAt, 0); tkExp.After(exp) {
		return tkExp
	}
	return exp
}

// record 写入安全事件，写入失败只记录日志
func (s *ticketAuthService) record(ctx context.Context, eventType, userID, detail string, client ClientInfo) {
	event := ticket.Event{
		Type:          eventType,
		UserID:        userID,
		Detail:        detail,
		ClientAddress: client.Address,
		UserAgent:     client.UserAgent,
	}
	if err := s.Sink.Record(ctx, event); err != nil {
		s.Logger.Error("记录安全事件失败", zap.String("event_type", eventType), zap.Error(err))
	}
}
