package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrSessionExpired  = errors.New("会话已过期")
)

// SessionService 会话服务接口
// 会话是 TGT 的唯一持有者，票据服务本身不保存任何票据
type SessionService interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	// Save 覆盖已有会话，用于续期后写回新票据
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByUserID(ctx context.Context, userID string) error
	ListByUserID(ctx context.Context, userID string) ([]*model.Session, error)
}

// SessionServiceConfig 会话服务配置
type SessionServiceConfig struct {
	SessionExpiry time.Duration // 会话有效期，默认 30 分钟
	Codec         SessionCodec  // 默认 JSON
}

type sessionService struct {
	redis  *redis.Client
	config *SessionServiceConfig
}

// NewSessionService 创建会话服务
func NewSessionService(redisClient *redis.Client, config *SessionServiceConfig) SessionService {
	if config == nil {
		config = &SessionServiceConfig{}
	}
	if config.SessionExpiry == 0 {
		config.SessionExpiry = 30 * time.Minute
	}
	if config.Codec == nil {
		config.Codec = jsonCodec{}
	}
	return &sessionService{
		redis:  redisClient,
		config: config,
	}
}

// Redis key 前缀
const (
	sessionKeyPrefix   = "session:"
	userSessionsPrefix = "user_sessions:"
)

// Create 创建会话
func (s *sessionService) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(s.config.SessionExpiry)
	}
	session.CreatedAt = time.Now()

	if err := s.write(ctx, session); err != nil {
		return err
	}

	// 添加到用户会话列表
	userKey := userSessionsPrefix + session.UserID
	if err := s.redis.SAdd(ctx, userKey, session.ID).Err(); err != nil {
		return fmt.Errorf("添加用户会话索引失败: %w", err)
	}
	s.redis.Expire(ctx, userKey, s.config.SessionExpiry+time.Hour)

	return nil
}

// Save 写回会话
// 只覆盖仍然存在的会话，并发删除后不会被重新写入
func (s *sessionService) Save(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		return ErrSessionNotFound
	}
	data, ttl, err := s.encode(session)
	if err != nil {
		return err
	}

	key := sessionKeyPrefix + session.ID
	err = s.redis.SetArgs(ctx, key, data, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("存储会话失败: %w", err)
	}
	s.redis.Expire(ctx, userSessionsPrefix+session.UserID, ttl+time.Hour)
	return nil
}

func (s *sessionService) write(ctx context.Context, session *model.Session) error {
	data, ttl, err := s.encode(session)
	if err != nil {
		return err
	}
	key := sessionKeyPrefix + session.ID
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("存储会话失败: %w", err)
	}
	return nil
}

func (s *sessionService) encode(session *model.Session) ([]byte, time.Duration, error) {
	data, err := s.config.Codec.Marshal(session)
	if err != nil {
		return nil, 0, fmt.Errorf("序列化会话失败: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil, 0, errors.New("会话过期时间无效")
	}
	return data, ttl, nil
}

// Get 获取会话
func (s *sessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	key := sessionKeyPrefix + sessionID
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}

	var session model.Session
	if err := s.config.Codec.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}

	if session.IsExpired() {
		s.redis.Del(ctx, key)
		s.redis.SRem(ctx, userSessionsPrefix+session.UserID, sessionID)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Delete 删除会话
func (s *sessionService) Delete(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return err
	}

	key := sessionKeyPrefix + sessionID
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}

	if session != nil {
		s.redis.SRem(ctx, userSessionsPrefix+session.UserID, sessionID)
	}

	return nil
}

// DeleteByUserID 删除用户的所有会话
func (s *sessionService) DeleteByUserID(ctx context.Context, userID string) error {
	userKey := userSessionsPrefix + userID
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("获取用户会话列表失败: %w", err)
	}

	var errs []error
	for _, sessionID := range sessionIDs {
		if err := s.redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
			errs = append(errs, fmt.Errorf("删除会话 %s 失败: %w", sessionID, err))
		}
	}
	if err := s.redis.Del(ctx, userKey).Err(); err != nil {
		errs = append(errs, fmt.Errorf("删除用户会话索引失败: %w", err))
	}

	return errors.Join(errs...)
}

// ListByUserID 列出用户的所有会话
func (s *sessionService) ListByUserID(ctx context.Context, userID string) ([]*model.Session, error) {
	userKey := userSessionsPrefix + userID
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取用户会话列表失败: %w", err)
	}

	var sessions []*model.Session
	for _, sessionID := range sessionIDs {
		session, err := s.Get(ctx, sessionID)
		if err != nil {
			// 跳过已过期或不存在的会话
			if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
				s.redis.SRem(ctx, userKey, sessionID)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}
