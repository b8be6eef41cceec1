package ticket

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

type digestFunc func(data []byte) []byte

func sha256Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func blake3Digest(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

func digestByName(name string) (digestFunc, error) {
	switch name {
	case DigestSHA256:
		return sha256Digest, nil
	case DigestBLAKE3:
		return blake3Digest, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDigest, name)
	}
}

// canonicalPayload 构造签名载荷
// 字段顺序固定：userid@realm、role、issued_at、expires_at、client_address、session_key，
// 每个字段编码为 "<字节长度>:<值>"，以 "|" 连接，字段中出现 "|" 也不会产生歧义。
func canonicalPayload(principal, role string, issuedAt, expiresAt int64, clientAddress, sessionKey string) string {
	fields := []string{
		principal,
		role,
		strconv.FormatInt(issuedAt, 10),
		strconv.FormatInt(expiresAt, 10),
		clientAddress,
		sessionKey,
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// sign 计算 hex(H(payload || secret))
func (s *service) sign(userID, role string, issuedAt, expiresAt int64, clientAddress, sessionKey string) string {
	payload := canonicalPayload(userID+"@"+s.cfg.Realm, role, issuedAt, expiresAt, clientAddress, sessionKey)
	return hex.EncodeToString(s.digest([]byte(payload + s.cfg.Secret)))
}

// verifySignature 按票据自身字段重新计算签名并常量时间比较
func (s *service) verifySignature(t *Ticket) bool {
	expected := s.sign(t.UserID, t.Role, t.IssuedAt, t.ExpiresAt, t.ClientAddress, t.SessionKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(t.Signature)) == 1
}
