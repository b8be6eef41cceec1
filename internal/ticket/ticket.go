// Package ticket 会话票据（TGT / Service Ticket）的签发、校验与续期
//
// 票据是带签名、有过期时间并绑定客户端地址的能力令牌。本包不保存任何票据，
// 票据由调用方（会话存储）持有，所有操作都是纯函数，只依赖注入的时钟与随机源。
package ticket

import (
	"errors"
	"time"
)

// 默认配置
const (
	DefaultLifetime         = 1800 * time.Second // TGT 有效期 30 分钟
	DefaultServiceLifetime  = 600 * time.Second  // Service Ticket 有效期 10 分钟
	DefaultRenewalThreshold = 300 * time.Second  // 剩余不足 5 分钟时自动续期
	DefaultRealm            = "CARDVAULT.LOCAL"
	DefaultPrimaryService   = "vault-service"

	// sessionKeyBytes 会话密钥随机字节数（256 位）
	sessionKeyBytes = 32
	// fromTGTPrefixLen Service Ticket 中父票据签名前缀长度
	fromTGTPrefixLen = 16
)

// 摘要算法
const (
	DigestSHA256 = "sha256"
	DigestBLAKE3 = "blake3"
)

var (
	ErrSecretEmpty       = errors.New("票据服务密钥不能为空")
	ErrUnsupportedDigest = errors.New("不支持的摘要算法")
	ErrServiceNameEmpty  = errors.New("服务名称不能为空")
)

// Ticket 主票据（TGT），签发后不可变，续期会生成新实例
type Ticket struct {
	Principal     string `json:"principal" cbor:"principal"` // userid@realm
	UserID        string `json:"userid" cbor:"userid"`
	Role          string `json:"role" cbor:"role"`
	SessionKey    string `json:"session_key" cbor:"session_key"`
	IssuedAt      int64  `json:"issued_at" cbor:"issued_at"`   // 签发时间（秒）
	ExpiresAt     int64  `json:"expires_at" cbor:"expires_at"` // 过期时间（秒）
	ClientAddress string `json:"client_address" cbor:"client_address"`
	Signature     string `json:"signature" cbor:"signature"`
	Realm         string `json:"realm" cbor:"realm"`
	Service       string `json:"service" cbor:"service"`
}

// ServiceTicket 由有效 TGT 换取的短期服务票据
// FromTGT 只是审计用的父票据签名前缀，不构成密码学绑定
type ServiceTicket struct {
	Principal     string `json:"principal" cbor:"principal"`
	UserID        string `json:"userid" cbor:"userid"`
	Role          string `json:"role" cbor:"role"`
	Service       string `json:"service" cbor:"service"`
	SessionKey    string `json:"session_key" cbor:"session_key"`
	IssuedAt      int64  `json:"issued_at" cbor:"issued_at"`
	ExpiresAt     int64  `json:"expires_at" cbor:"expires_at"`
	ClientAddress string `json:"client_address" cbor:"client_address"`
	FromTGT       string `json:"from_tgt" cbor:"from_tgt"`
}

// Config 票据服务配置
type Config struct {
	Lifetime         time.Duration // TGT 有效期
	ServiceLifetime  time.Duration // Service Ticket 有效期
	RenewalThreshold time.Duration // 自动续期阈值
	Realm            string        // 签发域
	Secret           string        // 部署级服务密钥
	Digest           string        // 摘要算法：sha256 / blake3
	PrimaryService   string        // TGT 的目标服务名
}

// withDefaults 返回填充默认值后的配置副本
func (c Config) withDefaults() Config {
	if c.Lifetime <= 0 {
		c.Lifetime = DefaultLifetime
	}
	if c.ServiceLifetime <= 0 {
		c.ServiceLifetime = DefaultServiceLifetime
	}
	if c.RenewalThreshold <= 0 {
		c.RenewalThreshold = DefaultRenewalThreshold
	}
	if c.Realm == "" {
		c.Realm = DefaultRealm
	}
	if c.Digest == "" {
		c.Digest = DigestSHA256
	}
	if c.PrimaryService == "" {
		c.PrimaryService = DefaultPrimaryService
	}
	return c
}

// Clock 时钟
type Clock interface {
	Now() time.Time
}

// ClockFunc 函数适配为 Clock
type ClockFunc func() time.Time

// Now 返回当前时间
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock 系统时钟
var SystemClock Clock = ClockFunc(time.Now)
