package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Service 票据服务接口
// 实现无共享可变状态，可被多个请求并发调用
type Service interface {
	// Issue 为已认证主体签发 TGT
	Issue(userID, role, clientAddress string) (*Ticket, error)
	// Validate 校验票据，失败时返回 *ValidationError
	Validate(t *Ticket, clientAddress string) error
	// Renew 校验旧票据并签发全新的票据，旧票据不会被撤销
	Renew(old *Ticket, clientAddress string) (*Ticket, error)
	// Exchange 用有效 TGT 换取指定服务的 Service Ticket
	Exchange(tgt *Ticket, clientAddress, serviceName string) (*ServiceTicket, error)
	// Remaining 票据剩余有效时间
	Remaining(t *Ticket) time.Duration
	// NeedsRenewal 剩余有效时间是否低于续期阈值
	NeedsRenewal(t *Ticket) bool
	// Inspect 返回票据的只读展示信息
	Inspect(t *Ticket) *Info
	// Config 返回生效配置
	Config() Config
}

type service struct {
	cfg    Config
	clock  Clock
	random io.Reader
	digest digestFunc
}

// NewService 创建票据服务
// clock 与 random 为 nil 时分别使用系统时钟和 crypto/rand
func NewService(cfg *Config, clock Clock, random io.Reader) (Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := cfg.withDefaults()
	if c.Secret == "" {
		return nil, ErrSecretEmpty
	}
	digest, err := digestByName(c.Digest)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	if random == nil {
		random = rand.Reader
	}
	return &service{
		cfg:    c,
		clock:  clock,
		random: random,
		digest: digest,
	}, nil
}

func (s *service) now() int64 {
	return s.clock.Now().Unix()
}

// newSessionKey 生成 256 位随机会话密钥
func (s *service) newSessionKey() (string, error) {
	buf := make([]byte, sessionKeyBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("生成会话密钥失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue 签发 TGT
// 不校验 userID / role 格式，那是认证方的职责
func (s *service) Issue(userID, role, clientAddress string) (*Ticket, error) {
	sessionKey, err := s.newSessionKey()
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	expiresAt := issuedAt + int64(s.cfg.Lifetime/time.Second)

	return &Ticket{
		Principal:     userID + "@" + s.cfg.Realm,
		UserID:        userID,
		Role:          role,
		SessionKey:    sessionKey,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
		ClientAddress: clientAddress,
		Signature:     s.sign(userID, role, issuedAt, expiresAt, clientAddress, sessionKey),
		Realm:         s.cfg.Realm,
		Service:       s.cfg.PrimaryService,
	}, nil
}

// Validate 依次检查：票据存在、未过期、地址一致、签名正确、域正确
// 检查顺序只影响返回的原因，第一个失败即返回
func (s *service) Validate(t *Ticket, clientAddress string) error {
	if t == nil {
		return ErrMissingTicket
	}
	if s.now() > t.ExpiresAt {
		return ErrExpired
	}
	if clientAddress != t.ClientAddress {
		return ErrAddressMismatch
	}
	if !s.verifySignature(t) {
		return ErrSignatureInvalid
	}
	if t.Realm != s.cfg.Realm {
		return ErrRealmInvalid
	}
	return nil
}

// Renew 续期
// 新票据绑定当前请求地址，拥有新的时间戳、会话密钥和签名
func (s *service) Renew(old *Ticket, clientAddress string) (*Ticket, error) {
	if err := s.Validate(old, clientAddress); err != nil {
		return nil, err
	}
	return s.Issue(old.UserID, old.Role, clientAddress)
}

// Exchange 换取 Service Ticket
func (s *service) Exchange(tgt *Ticket, clientAddress, serviceName string) (*ServiceTicket, error) {
	if err := s.Validate(tgt, clientAddress); err != nil {
		return nil, err
	}
	if serviceName == "" {
		return nil, ErrServiceNameEmpty
	}

	sessionKey, err := s.newSessionKey()
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	fromTGT := tgt.Signature
	if len(fromTGT) > fromTGTPrefixLen {
		fromTGT = fromTGT[:fromTGTPrefixLen]
	}

	return &ServiceTicket{
		Principal:     tgt.UserID + "@" + s.cfg.Realm,
		UserID:        tgt.UserID,
		Role:          tgt.Role,
		Service:       serviceName,
		SessionKey:    sessionKey,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt + int64(s.cfg.ServiceLifetime/time.Second),
		ClientAddress: clientAddress,
		FromTGT:       fromTGT,
	}, nil
}

// Remaining 剩余有效时间，已过期时为负数
func (s *service) Remaining(t *Ticket) time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(t.ExpiresAt-s.now()) * time.Second
}

// NeedsRenewal 剩余时间低于阈值（严格小于）时需要续期
func (s *service) NeedsRenewal(t *Ticket) bool {
	return t != nil && s.Remaining(t) < s.cfg.RenewalThreshold
}

// Config 返回生效配置
func (s *service) Config() Config {
	return s.cfg
}
