package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/dto"
	"medservice-console/internal/permission"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
	"medservice-console/pkg/apiclient"
	pkgerrors "medservice-console/pkg/errors"
	"medservice-console/pkg/jwt"
)

var (
	ErrInvalidUpstreamToken = errors.New("upstream rejected the access token")
	ErrSessionInvalid       = errors.New("session is missing or invalid")
	ErrSessionRevoked       = errors.New("session has been revoked")
	ErrSessionExpired       = errors.New("session has expired")
)

// SessionService 会话业务接口
type SessionService interface {
	// Open 用上游令牌换取会话 Cookie；返回签名后的 Cookie 值
	Open(ctx context.Context, upstreamToken string) (*dto.SessionResponse, string, error)
	// Resolve 解析 Cookie 为会话对象
	Resolve(ctx context.Context, cookie string) (*session.Session, error)
	// Check 复查已解析的会话是否过期或被吊销（长连接使用）
	Check(ctx context.Context, sess *session.Session) error
	// Close 吊销会话
	Close(ctx context.Context, sess *session.Session) error
	// Describe 会话信息与可见导航
	Describe(sess *session.Session) *dto.SessionResponse
}

type sessionService struct {
	cfg      *config.Config
	upstream Upstream
	jwtMgr   *jwt.Manager
	revoker  Revoker
	gate     *permission.Gate
	registry *resource.Registry
	logger   *zap.Logger
}

// NewSessionService 创建 SessionService 实例；revoker 为 nil 时登出只清除 Cookie
func NewSessionService(
	cfg *config.Config,
	upstream Upstream,
	jwtMgr *jwt.Manager,
	revoker Revoker,
	gate *permission.Gate,
	registry *resource.Registry,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		cfg:      cfg,
		upstream: upstream,
		jwtMgr:   jwtMgr,
		revoker:  revoker,
		gate:     gate,
		registry: registry,
		logger:   logger,
	}
}

// ────────────────────── Open ──────────────────────

func (s *sessionService) Open(ctx context.Context, upstreamToken string) (*dto.SessionResponse, string, error) {
	upstreamToken = strings.TrimSpace(upstreamToken)

	body, err := s.upstream.Get(ctx, apiclient.TokenCredentials(upstreamToken), s.cfg.Upstream.ProfilePath, nil)
	if err != nil {
		var ae *pkgerrors.APIError
		if errors.As(err, &ae) && (ae.Status == 401 || ae.Status == 403) {
			return nil, "", ErrInvalidUpstreamToken
		}
		return nil, "", err
	}

	name, role, perms := parseProfile(body)
	if role == "" && len(perms) == 0 {
		s.logger.Warn("上游个人信息缺少角色与权限", zap.String("path", s.cfg.Upstream.ProfilePath))
	}

	signed, claims, err := s.jwtMgr.Issue(upstreamToken, name, role, perms)
	if err != nil {
		s.logger.Error("签发会话令牌失败", zap.Error(err))
		return nil, "", err
	}

	sess := sessionFromClaims(claims)
	s.logger.Info("会话已建立", zap.String("session_id", sess.ID), zap.String("role", role), zap.Int("permissions", len(perms)))
	return s.Describe(sess), signed, nil
}

// parseProfile 兼容 data.role / data.roles[]，权限可以是字符串或 { name } 对象
func parseProfile(body gjson.Result) (name, role string, perms []string) {
	user := body
	if d := body.Get("data"); d.IsObject() {
		user = d
	}
	if u := user.Get("user"); u.IsObject() {
		name = u.Get("name").String()
	}
	if name == "" {
		name = user.Get("name").String()
	}

	role = roleName(user.Get("role"))
	if role == "" {
		if roles := user.Get("roles").Array(); len(roles) > 0 {
			role = roleName(roles[0])
		}
	}

	seen := map[string]struct{}{}
	for _, p := range user.Get("permissions").Array() {
		v := p.String()
		if p.IsObject() {
			v = p.Get("name").String()
		}
		v = strings.TrimSpace(v)
		if _, dup := seen[v]; v == "" || dup {
			continue
		}
		seen[v] = struct{}{}
		perms = append(perms, v)
	}
	return strings.TrimSpace(name), role, perms
}

func roleName(r gjson.Result) string {
	if r.IsObject() {
		return strings.TrimSpace(r.Get("name").String())
	}
	return strings.TrimSpace(r.String())
}

// ────────────────────── Resolve ──────────────────────

func (s *sessionService) Resolve(ctx context.Context, cookie string) (*session.Session, error) {
	if cookie == "" {
		return nil, ErrSessionInvalid
	}
	claims, err := s.jwtMgr.ParseToken(cookie)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	if s.revoked(ctx, claims.ID) {
		return nil, ErrSessionRevoked
	}
	return sessionFromClaims(claims), nil
}

// revoked 查询黑名单；Redis 不可用或出错时降级放行
func (s *sessionService) revoked(ctx context.Context, id string) bool {
	if s.revoker == nil {
		return false
	}
	revoked, err := s.revoker.IsBlacklisted(ctx, id)
	if err != nil {
		s.logger.Warn("检查会话黑名单失败", zap.Error(err))
		return false
	}
	return revoked
}

// ────────────────────── Check ──────────────────────

func (s *sessionService) Check(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return ErrSessionInvalid
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		return ErrSessionExpired
	}
	if s.revoked(ctx, sess.ID) {
		return ErrSessionRevoked
	}
	return nil
}

func sessionFromClaims(c *jwt.Claims) *session.Session {
	sess := &session.Session{
		ID:          c.ID,
		Token:       c.UpstreamToken,
		Name:        c.Name,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess
}

// ────────────────────── Close ──────────────────────

func (s *sessionService) Close(ctx context.Context, sess *session.Session) error {
	if s.revoker == nil || sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.revoker.BlacklistToken(ctx, sess.ID, time.Until(sess.ExpiresAt)); err != nil {
		s.logger.Error("吊销会话失败", zap.String("session_id", sess.ID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Describe ──────────────────────

func (s *sessionService) Describe(sess *session.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		Name:        sess.Name,
		Role:        sess.Role,
		Permissions: sess.SortedPermissions(),
		ExpiresAt:   sess.ExpiresAt,
		Resources:   []dto.NavItem{},
		CanAudit:    s.gate.Allows(sess, permission.ViewAudit),
	}
	for _, d := range s.registry.All() {
		if !s.gate.Allows(sess, d.Permission(resource.ActionView)) {
			continue
		}
		resp.Resources = append(resp.Resources, dto.NavItem{
			Key:       d.Key,
			Title:     d.Title,
			CanCreate: s.gate.Allows(sess, d.Permission(resource.ActionCreate)),
			CanEdit:   s.gate.Allows(sess, d.Permission(resource.ActionEdit)),
			CanDelete: s.gate.Allows(sess, d.Permission(resource.ActionDelete)),
			CanExport: d.Exportable(),
		})
	}
	return resp
}
