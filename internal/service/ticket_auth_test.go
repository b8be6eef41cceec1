package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketAuthFixture struct {
	svc      TicketAuthService
	sessions SessionService
	tickets  ticket.Service
	logs     *mockAccessLogRepository
	clock    *testClock
}

func newTicketAuthFixture(t *testing.T, revoke bool) *ticketAuthFixture {
	t.Helper()
	client, _, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	userRepo := newMockUserRepository()
	createTestUser(t, userRepo, "merchant01", model.RoleMerchant, "Test1234")

	clock := &testClock{now: time.Now().Unix()}
	tickets := newTestTickets(t, clock)
	sessions := NewSessionService(client, nil)
	handoff, err := NewHandoffService("service-test-secret", ticket.DefaultRealm, clock)
	require.NoError(t, err)
	logs := &mockAccessLogRepository{}

	cfg := TicketAuthConfig{
		Auth:     NewAuthService(userRepo),
		Tickets:  tickets,
		Sessions: sessions,
		Handoff:  handoff,
		Sink:     NewAccessLogSink(logs),
	}
	if revoke {
		cfg.Revocations = NewRevocationList(client, clock)
	}

	return &ticketAuthFixture{
		svc:      NewTicketAuthService(cfg),
		sessions: sessions,
		tickets:  tickets,
		logs:     logs,
		clock:    clock,
	}
}

var testClient = ClientInfo{Address: "10.0.0.5", UserAgent: "curl/8.0"}

func TestTicketAuth_Login(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)
	require.NotNil(t, session.Ticket)
	assert.Equal(t, "merchant01@CARDVAULT.LOCAL", session.Ticket.Principal)
	assert.Equal(t, "10.0.0.5", session.Ticket.ClientAddress)
	assert.Equal(t, model.RoleMerchant, session.Role)

	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Ticket.Signature, stored.Ticket.Signature)

	_, err = f.svc.Login(ctx, "merchant01", "wrong", testClient)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{"KERBEROS_TGT_ISSUED", "KERBEROS_AUTH_FAILED"}, f.logs.actions())
	assert.Equal(t, "merchant01", f.logs.logs[1].UserID)
}

func TestTicketAuth_AuthorizeWithoutRenewal(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)

	// 剩余 1000 秒，高于阈值
	f.clock.now += 800
	result, err := f.svc.Authorize(ctx, session.ID, testClient)
	require.NoError(t, err)
	assert.False(t, result.Renewed)
	assert.Equal(t, session.Ticket.Signature, result.Session.Ticket.Signature)
}

func TestTicketAuth_AuthorizeAutoRenew(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)
	old := session.Ticket

	// 剩余 299 秒，低于阈值
	f.clock.now = old.ExpiresAt - 299
	result, err := f.svc.Authorize(ctx, session.ID, testClient)
	require.NoError(t, err)
	assert.True(t, result.Renewed)
	assert.NotEqual(t, old.Signature, result.Session.Ticket.Signature)
	assert.Equal(t, f.clock.now+1800, result.Session.Ticket.ExpiresAt)
	assert.NotNil(t, result.Session.TicketRenewedAt)

	// 新票据已写回会话
	stored, err := f.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Session.Ticket.Signature, stored.Ticket.Signature)

	// 未启用撤销时旧票据在到期前依然有效
	assert.NoError(t, f.tickets.Validate(old, "10.0.0.5"))
	assert.Contains(t, f.logs.actions(), "KERBEROS_TICKET_RENEWED")
}

func TestTicketAuth_AuthorizeFailureDeletesSession(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ticketAuthFixture, s *model.Session)
		client ClientInfo
		reason ticket.Reason
	}{
		{
			name:   "地址不匹配",
			mutate: func(f *ticketAuthFixture, s *model.Session) {},
			client: ClientInfo{Address: "10.0.0.6"},
			reason: ticket.ReasonAddressMismatch,
		},
		{
			name:   "票据过期",
			mutate: func(f *ticketAuthFixture, s *model.Session) { f.clock.now = s.Ticket.ExpiresAt + 1 },
			client: testClient,
			reason: ticket.ReasonExpired,
		},
		{
			name: "角色被篡改",
			mutate: func(f *ticketAuthFixture, s *model.Session) {
				s.Ticket.Role = model.RoleAdmin
				require.NoError(t, f.sessions.Save(context.Background(), s))
			},
			client: testClient,
			reason: ticket.ReasonSignatureInvalid,
		},
		{
			name: "缺少票据",
			mutate: func(f *ticketAuthFixture, s *model.Session) {
				s.Ticket = nil
				require.NoError(t, f.sessions.Save(context.Background(), s))
			},
			client: testClient,
			reason: ticket.ReasonMissingTicket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTicketAuthFixture(t, false)
			ctx := context.Background()

			session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
			require.NoError(t, err)
			tt.mutate(f, session)

			_, err = f.svc.Authorize(ctx, session.ID, tt.client)
			require.Error(t, err)
			assert.Equal(t, tt.reason, ticket.ReasonOf(err))

			_, err = f.sessions.Get(ctx, session.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
			assert.Contains(t, f.logs.actions(), "KERBEROS_VALIDATION_FAILED")
		})
	}
}

// brokenRevocations 撤销列表后端不可用
type brokenRevocations struct{}

func (brokenRevocations) Revoke(ctx context.Context, t *ticket.Ticket) error {
	return errors.New("redis: connection refused")
}

func (brokenRevocations) IsRevoked(ctx context.Context, t *ticket.Ticket) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestTicketAuth_AuthorizeRevocationBackendDown(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	userRepo := newMockUserRepository()
	createTestUser(t, userRepo, "merchant01", model.RoleMerchant, "Test1234")
	clock := &testClock{now: time.Now().Unix()}
	sessions := NewSessionService(client, nil)
	logs := &mockAccessLogRepository{}
	svc := NewTicketAuthService(TicketAuthConfig{
		Auth:        NewAuthService(userRepo),
		Tickets:     newTestTickets(t, clock),
		Sessions:    sessions,
		Sink:        NewAccessLogSink(logs),
		Revocations: brokenRevocations{},
	})
	ctx := context.Background()

	session, err := svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, session.ID, testClient)
	require.Error(t, err)
	assert.Equal(t, ticket.Reason(0), ticket.ReasonOf(err))
	assert.NotErrorIs(t, err, ErrTicketRevoked)

	// 会话保留，也不记录校验失败
	_, err = sessions.Get(ctx, session.ID)
	assert.NoError(t, err)
	assert.NotContains(t, logs.actions(), "KERBEROS_VALIDATION_FAILED")
}

func TestTicketAuth_AuthorizeUnknownSession(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	_, err := f.svc.Authorize(context.Background(), "missing", testClient)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTicketAuth_ManualRenew(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)
	old := session.Ticket.Signature

	f.clock.now += 60
	renewed, err := f.svc.Renew(ctx, session.ID, testClient)
	require.NoError(t, err)
	assert.NotEqual(t, old, renewed.Ticket.Signature)

	// 其他地址续期失败，会话保留
	_, err = f.svc.Renew(ctx, session.ID, ClientInfo{Address: "10.0.0.6"})
	assert.Equal(t, ticket.ReasonAddressMismatch, ticket.ReasonOf(err))
	_, err = f.sessions.Get(ctx, session.ID)
	assert.NoError(t, err)
}

func TestTicketAuth_Exchange(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)

	grant, err := f.svc.Exchange(ctx, session, "invoice-service", testClient)
	require.NoError(t, err)
	assert.Equal(t, "invoice-service", grant.Ticket.Service)
	assert.Equal(t, session.Ticket.Signature[:16], grant.Ticket.FromTGT)
	assert.Equal(t, int64(600), grant.Ticket.ExpiresAt-grant.Ticket.IssuedAt)
	assert.NotEmpty(t, grant.Token)

	_, err = f.svc.Exchange(ctx, session, "invoice-service", ClientInfo{Address: "10.0.0.6"})
	assert.Equal(t, ticket.ReasonAddressMismatch, ticket.ReasonOf(err))

	_, err = f.svc.Exchange(ctx, nil, "invoice-service", testClient)
	assert.Equal(t, ticket.ReasonMissingTicket, ticket.ReasonOf(err))

	assert.Contains(t, f.logs.actions(), "KERBEROS_SERVICE_TICKET_ISSUED")
}

func TestTicketAuth_Logout(t *testing.T) {
	f := newTicketAuthFixture(t, false)
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, session.ID, testClient))
	_, err = f.sessions.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 重复登出不报错
	assert.NoError(t, f.svc.Logout(ctx, session.ID, testClient))
	assert.Equal(t, "KERBEROS_LOGOUT", f.logs.actions()[len(f.logs.actions())-1])
}

func TestTicketAuth_RevokeOnRenew(t *testing.T) {
	f := newTicketAuthFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "merchant01", "Test1234", testClient)
	require.NoError(t, err)
	// 另一个会话持有同一张旧票据的副本
	copySession := &model.Session{UserID: "merchant01", Ticket: first.Ticket}
	require.NoError(t, f.sessions.Create(ctx, copySession))

	_, err = f.svc.Renew(ctx, first.ID, testClient)
	require.NoError(t, err)

	// 旧票据已被撤销
	_, err = f.svc.Authorize(ctx, copySession.ID, testClient)
	assert.ErrorIs(t, err, ErrTicketRevoked)

	// 新票据正常
	_, err = f.svc.Authorize(ctx, first.ID, testClient)
	assert.NoError(t, err)
}
