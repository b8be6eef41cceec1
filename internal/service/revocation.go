package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/redis/go-redis/v9"
)

const revokedTicketPrefix = "revoked_ticket:"

// RevocationList 已撤销票据列表
// 默认不启用，续期后旧票据在到期前依然有效
type RevocationList interface {
	Revoke(ctx context.Context, t *ticket.Ticket) error
	IsRevoked(ctx context.Context, t *ticket.Ticket) (bool, error)
}

type redisRevocationList struct {
	redis *redis.Client
	clock ticket.Clock
}

// NewRevocationList 创建基于 Redis 的撤销列表，条目在票据过期时自动清除
func NewRevocationList(redisClient *redis.Client, clock ticket.Clock) RevocationList {
	if clock == nil {
		clock = ticket.SystemClock
	}
	return &redisRevocationList{redis: redisClient, clock: clock}
}

func (r *redisRevocationList) Revoke(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.Signature == "" {
		return nil
	}
	ttl := time.Duration(t.ExpiresAt-r.clock.Now().Unix()) * time.Second
	if ttl <= 0 {
		// 已过期的票据无需撤销
		return nil
	}
	if err := r.redis.Set(ctx, revokedTicketPrefix+t.Signature, t.Principal, ttl).Err(); err != nil {
		return fmt.Errorf("撤销票据失败: %w", err)
	}
	return nil
}

func (r *redisRevocationList) IsRevoked(ctx context.Context, t *ticket.Ticket) (bool, error) {
	if t == nil || t.Signature == "" {
		return false, nil
	}
	n, err := r.redis.Exists(ctx, revokedTicketPrefix+t.Signature).Result()
	if err != nil {
		return false, fmt.Errorf("查询撤销列表失败: %w", err)
	}
	return n > 0, nil
}
