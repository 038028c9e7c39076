// Package session 定义显式传递的会话上下文。
//
// 令牌、角色与权限在进入业务层前一次性解析完毕，之后随 context.Context
// 传入每一次数据访问调用，业务代码不再自行读取 Cookie。
package session

import (
	"context"
	"sort"
	"time"
)

// Session 当前登录用户的会话
type Session struct {
	ID          string
	Token       string
	Name        string
	Role        string
	Permissions []string
	ExpiresAt   time.Time
}

// BearerToken 实现 apiclient.Credentials
func (s *Session) BearerToken() string {
	if s == nil {
		return ""
	}
	return s.Token
}

// Has 是否持有某项权限
func (s *Session) Has(permission string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// SortedPermissions 去重并排序后的权限列表
func (s *Session) SortedPermissions() []string {
	seen := make(map[string]struct{}, len(s.Permissions))
	out := make([]string, 0, len(s.Permissions))
	for _, p := range s.Permissions {
		if _, ok := seen[p]; ok || p == "" {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type ctxKey struct{}

// WithSession 将会话写入 context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext 从 context 中取出会话
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

type requestIDKey struct{}

// WithRequestID 将请求追踪 ID 写入 context，审计记录使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 读取请求追踪 ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
