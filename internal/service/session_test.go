package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 创建测试用的 Redis 客户端
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

// testClock 可调节的测试时钟，单位秒
type testClock struct {
	now int64
}

func (c *testClock) Now() time.Time {
	return time.Unix(c.now, 0)
}

func newTestTickets(t *testing.T, clock ticket.Clock) ticket.Service {
	t.Helper()
	svc, err := ticket.NewService(&ticket.Config{Secret: "service-test-secret"}, clock, nil)
	require.NoError(t, err)
	return svc
}

func TestSessionService_Create(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	session := &model.Session{
		UserID:    "merchant01",
		Role:      model.RoleMerchant,
		IPAddress: "192.168.1.1",
		UserAgent: "Mozilla/5.0",
	}

	err := svc.Create(ctx, session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.False(t, session.ExpiresAt.IsZero())
}

func TestSessionService_GetRoundTrip(t *testing.T) {
	for _, codecName := range []string{CodecJSON, CodecCBOR} {
		t.Run(codecName, func(t *testing.T) {
			client, _, cleanup := setupTestRedis(t)
			defer cleanup()

			codec, err := NewSessionCodec(codecName)
			require.NoError(t, err)
			assert.Equal(t, codecName, codec.Name())

			svc := NewSessionService(client, &SessionServiceConfig{Codec: codec})
			ctx := context.Background()

			clock := &testClock{now: time.Now().Unix()}
			tickets := newTestTickets(t, clock)
			tk, err := tickets.Issue("merchant01", model.RoleMerchant, "10.0.0.5")
			require.NoError(t, err)

			session := &model.Session{
				UserID:    "merchant01",
				Role:      model.RoleMerchant,
				FullName:  "商户一",
				Ticket:    tk,
				IPAddress: "10.0.0.5",
			}
			require.NoError(t, svc.Create(ctx, session))

			retrieved, err := svc.Get(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, session.ID, retrieved.ID)
			assert.Equal(t, session.FullName, retrieved.FullName)
			require.NotNil(t, retrieved.Ticket)
			assert.Equal(t, *tk, *retrieved.Ticket)

			// 存储往返后签名仍然有效
			assert.NoError(t, tickets.Validate(retrieved.Ticket, "10.0.0.5"))
		})
	}
}

func TestNewSessionCodec_Unsupported(t *testing.T) {
	_, err := NewSessionCodec("gob")
	assert.Error(t, err)

	codec, err := NewSessionCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecJSON, codec.Name())
}

func TestCBORCodec_Deterministic(t *testing.T) {
	codec, err := NewSessionCodec(CodecCBOR)
	require.NoError(t, err)

	session := &model.Session{
		ID:        "s-1",
		UserID:    "auditor01",
		Role:      model.RoleAuditor,
		ExpiresAt: time.Unix(1_700_000_000, 123),
		CreatedAt: time.Unix(1_699_999_000, 0),
	}
	a, err := codec.Marshal(session)
	require.NoError(t, err)
	b, err := codec.Marshal(session)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var decoded model.Session
	require.NoError(t, codec.Unmarshal(a, &decoded))
	assert.True(t, decoded.ExpiresAt.Equal(session.ExpiresAt))
}

func TestSessionService_Get_NotFound(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "non-existent-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Save(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	session := &model.Session{UserID: "merchant01", Role: model.RoleMerchant}
	require.NoError(t, svc.Create(ctx, session))

	now := time.Now()
	session.TicketRenewedAt = &now
	session.FullName = "已更新"
	require.NoError(t, svc.Save(ctx, session))

	retrieved, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "已更新", retrieved.FullName)
	require.NotNil(t, retrieved.TicketRenewedAt)

	// 已删除的会话不能被写回
	require.NoError(t, svc.Delete(ctx, session.ID))
	assert.ErrorIs(t, svc.Save(ctx, session), ErrSessionNotFound)
	assert.ErrorIs(t, svc.Save(ctx, &model.Session{}), ErrSessionNotFound)
}

// 续期写回与终止会话并发时，终止必须生效
func TestSessionService_SaveRacesDeleteByUserID(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		session := &model.Session{UserID: "alice", Role: model.RoleMerchant}
		require.NoError(t, svc.Create(ctx, session))

		renewed := *session
		renewed.FullName = "续期后"

		var wg sync.WaitGroup
		var saveErr, deleteErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			saveErr = svc.Save(ctx, &renewed)
		}()
		go func() {
			defer wg.Done()
			deleteErr = svc.DeleteByUserID(ctx, "alice")
		}()
		wg.Wait()

		require.NoError(t, deleteErr)
		if saveErr != nil {
			require.ErrorIs(t, saveErr, ErrSessionNotFound)
		}
		_, err := svc.Get(ctx, session.ID)
		require.ErrorIs(t, err, ErrSessionNotFound, "第 %d 次：会话在终止后被写回", i)
	}
}

func TestSessionService_DeleteByUserIDRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := NewSessionService(client, nil)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, &model.Session{UserID: "alice"}))

	mr.Close()
	assert.Error(t, svc.DeleteByUserID(ctx, "alice"))
}

func TestSessionService_Delete(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	session := &model.Session{UserID: "merchant01"}
	require.NoError(t, svc.Create(ctx, session))

	require.NoError(t, svc.Delete(ctx, session.ID))

	_, err := svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 重复删除不报错
	assert.NoError(t, svc.Delete(ctx, session.ID))
}

func TestSessionService_DeleteByUserID(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	userID := "merchant01"

	var ids []string
	for i := 0; i < 3; i++ {
		session := &model.Session{UserID: userID}
		require.NoError(t, svc.Create(ctx, session))
		ids = append(ids, session.ID)
	}

	require.NoError(t, svc.DeleteByUserID(ctx, userID))

	for _, id := range ids {
		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
	sessions, err := svc.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sessions, 0)
}

func TestSessionService_ListByUserID(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewSessionService(client, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Create(ctx, &model.Session{UserID: "merchant01"}))
	}
	require.NoError(t, svc.Create(ctx, &model.Session{UserID: "other"}))

	sessions, err := svc.ListByUserID(ctx, "merchant01")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestSessionService_ExpiredSession(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	// 使用很短的过期时间
	svc := NewSessionService(client, &SessionServiceConfig{
		SessionExpiry: 100 * time.Millisecond,
	})
	ctx := context.Background()

	session := &model.Session{UserID: "merchant01"}
	require.NoError(t, svc.Create(ctx, session))

	// 等待过期，miniredis 不会自动按真实时间淘汰 key
	time.Sleep(150 * time.Millisecond)

	_, err := svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
