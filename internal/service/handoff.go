package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrHandoffInvalid = errors.New("服务票据令牌无效")
	ErrHandoffExpired = errors.New("服务票据令牌已过期")
)

// HandoffClaims 服务票据令牌声明
type HandoffClaims struct {
	jwt.RegisteredClaims
	UserID        string `json:"userid"`
	Role          string `json:"role"`
	SessionKey    string `json:"session_key"`
	ClientAddress string `json:"client_address"`
	FromTGT       string `json:"from_tgt"`
}

// HandoffService 把 Service Ticket 封装为 HS256 JWT，交给下游服务校验
type HandoffService interface {
	Sign(st *ticket.ServiceTicket) (string, error)
	// Verify 校验令牌，service 必须与令牌受众一致
	Verify(tokenString, service string) (*HandoffClaims, error)
}

type handoffService struct {
	secret []byte
	issuer string
	clock  ticket.Clock
}

// NewHandoffService 创建服务票据令牌服务
func NewHandoffService(secret, realm string, clock ticket.Clock) (HandoffService, error) {
	if secret == "" {
		return nil, ticket.ErrSecretEmpty
	}
	if clock == nil {
		clock = ticket.SystemClock
	}
	return &handoffService{secret: []byte(secret), issuer: realm, clock: clock}, nil
}

func (s *handoffService) Sign(st *ticket.ServiceTicket) (string, error) {
	if st == nil {
		return "", ErrHandoffInvalid
	}
	claims := HandoffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   st.Principal,
			Audience:  jwt.ClaimStrings{st.Service},
			IssuedAt:  jwt.NewNumericDate(time.Unix(st.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(st.ExpiresAt, 0)),
			ID:        st.FromTGT,
		},
		UserID:        st.UserID,
		Role:          st.Role,
		SessionKey:    st.SessionKey,
		ClientAddress: st.ClientAddress,
		FromTGT:       st.FromTGT,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("签名服务票据令牌失败: %w", err)
	}
	return signed, nil
}

func (s *handoffService) Verify(tokenString, service string) (*HandoffClaims, error) {
	claims := &HandoffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(service),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrHandoffExpired
		}
		return nil, ErrHandoffInvalid
	}
	if !token.Valid {
		return nil, ErrHandoffInvalid
	}
	return claims, nil
}
