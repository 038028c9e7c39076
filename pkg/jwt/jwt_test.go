package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"medservice-console/config"
)

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(&config.AuthConfig{
		SessionSecret: "test-secret-key-for-unit-testing-2026",
		SessionTTL:    ttl,
	})
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(time.Hour)

	token, issued, err := m.Issue("upstream-abc", "Siti", "admin", []string{"view-division", "edit-division"})
	if err != nil {
		t.Fatalf("Issue 失败: %v", err)
	}
	if issued.ID == "" {
		t.Error("JTI 不应为空")
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	if claims.UpstreamToken != "upstream-abc" {
		t.Errorf("期望 UpstreamToken=upstream-abc，实际=%s", claims.UpstreamToken)
	}
	if claims.Role != "admin" || claims.Name != "Siti" {
		t.Errorf("角色或姓名不符: %s/%s", claims.Role, claims.Name)
	}
	if len(claims.Permissions) != 2 {
		t.Errorf("期望 2 项权限，实际 %v", claims.Permissions)
	}
	if claims.Issuer != "medservice-console" {
		t.Errorf("期望 Issuer=medservice-console，实际=%s", claims.Issuer)
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := newTestManager(time.Hour)
	claims := &Claims{
		UpstreamToken: "x",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, _ := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)

	if _, err := m.ParseToken(token); err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际 %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, _ := newTestManager(time.Hour).Issue("x", "", "admin", nil)

	other := NewManager(&config.AuthConfig{SessionSecret: "another-secret-key-0123456789"})
	if _, err := other.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际 %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := newTestManager(time.Hour).ParseToken("not.a.token"); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际 %v", err)
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	if got := newTestManager(0).TTL(); got != 12*time.Hour {
		t.Errorf("期望默认 12h，实际 %v", got)
	}
}
