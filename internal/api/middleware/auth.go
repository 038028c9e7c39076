package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/permission"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
	"medservice-console/pkg/response"
)

// sessionKey gin.Context 中的会话键
const sessionKey = "session"

// ErrNoSession 上下文中没有会话
var ErrNoSession = errors.New("no session in context")

// SessionResolver 将 Cookie 解析为会话（service.SessionService 实现）
type SessionResolver interface {
	Resolve(ctx context.Context, cookie string) (*session.Session, error)
}

// SessionAuth 会话认证中间件
// 从会话 Cookie 解析出会话，写入 gin.Context 与请求 context；
// 缺失、无效或已吊销的 Cookie 在访问上游之前直接返回 401
func SessionAuth(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			response.Unauthorized(c, response.CodeUnauthenticated, "Unauthenticated")
			c.Abort()
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), cookie)
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthenticated, "Session expired, please sign in again")
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))

		c.Next()
	}
}

// CurrentSession 取出 SessionAuth 注入的会话
func CurrentSession(c *gin.Context) (*session.Session, error) {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*session.Session); ok && sess != nil {
			return sess, nil
		}
	}
	if sess, ok := session.FromContext(c.Request.Context()); ok {
		return sess, nil
	}
	return nil, ErrNoSession
}

// RequirePermission 权限闸门中间件
// 持有任一权限即放行，否则 403 并终止
func RequirePermission(gate *permission.Gate, perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := CurrentSession(c)
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthenticated, "Unauthenticated")
			c.Abort()
			return
		}
		if !gate.Allows(sess, perms...) {
			response.Forbidden(c, response.CodeForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireResourcePermission 按路径参数 :resource 检查 <action>-<singular> 权限
func RequireResourcePermission(gate *permission.Gate, registry *resource.Registry, action resource.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		desc, ok := registry.Lookup(c.Param("resource"))
		if !ok {
			response.NotFound(c, response.CodeUnknownResource, "Unknown resource")
			c.Abort()
			return
		}
		sess, err := CurrentSession(c)
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthenticated, "Unauthenticated")
			c.Abort()
			return
		}
		if !gate.Allows(sess, desc.Permission(action)) {
			response.Forbidden(c, response.CodeForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
