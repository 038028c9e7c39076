package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medservice-console/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

const issuer = "medservice-console"

// Claims 会话 Cookie 中的声明
// UpstreamToken 为上游 API 的 Bearer 令牌，仅保存在 HttpOnly Cookie 中
type Claims struct {
	UpstreamToken string   `json:"upt"`
	Name          string   `json:"name,omitempty"`
	Role          string   `json:"role"`
	Permissions   []string `json:"perms"`
	jwtv5.RegisteredClaims
}

// Manager 会话令牌管理器
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager 创建会话令牌管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.SessionSecret),
		ttl:    ttl,
	}
}

// TTL 会话有效期
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue 签发会话令牌，返回令牌字符串与声明（含 JTI 与过期时间）
func (m *Manager) Issue(upstreamToken, name, role string, permissions []string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UpstreamToken: upstreamToken,
		Name:          name,
		Role:          role,
		Permissions:   permissions,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken 解析并验证会话令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UpstreamToken == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
