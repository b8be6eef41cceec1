// Package model 数据模型定义
package model

import (
	"time"

	"github.com/bpalanga/cryptoweb/internal/ticket"
)

// Session 用户会话，持有当前 TGT
// 票据服务本身不存储票据，会话是票据唯一的持有者
type Session struct {
	ID              string         `json:"id" cbor:"id"`
	UserID          string         `json:"userid" cbor:"userid"`
	Role            string         `json:"role" cbor:"role"`
	FullName        string         `json:"full_name" cbor:"full_name"`
	Ticket          *ticket.Ticket `json:"kerberos_ticket,omitempty" cbor:"kerberos_ticket,omitempty"`
	TicketRenewedAt *time.Time     `json:"ticket_renewed,omitempty" cbor:"ticket_renewed,omitempty"`
	IPAddress       string         `json:"ip_address" cbor:"ip_address"`
	UserAgent       string         `json:"user_agent" cbor:"user_agent"`
	ExpiresAt       time.Time      `json:"expires_at" cbor:"expires_at"`
	CreatedAt       time.Time      `json:"created_at" cbor:"created_at"`
}

// IsExpired 检查会话是否过期
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
