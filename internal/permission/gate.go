// Package permission 实现页面/操作级权限闸门。
package permission

import "medservice-console/internal/session"

// ViewAudit 查看审计日志所需权限
const ViewAudit = "view-audit"

// Gate 权限闸门
// 持有任一所需权限即放行；绕过角色（如 super-admin）无条件放行
type Gate struct {
	bypass map[string]struct{}
}

// NewGate 创建 Gate
func NewGate(bypassRoles []string) *Gate {
	g := &Gate{bypass: make(map[string]struct{}, len(bypassRoles))}
	for _, r := range bypassRoles {
		if r != "" {
			g.bypass[r] = struct{}{}
		}
	}
	return g
}

// Bypasses 角色是否绕过所有权限检查
func (g *Gate) Bypasses(role string) bool {
	_, ok := g.bypass[role]
	return ok
}

// Allows 判断会话是否满足 required 中的至少一项
// required 为空视为无需权限；sess 为 nil 一律拒绝
func (g *Gate) Allows(sess *session.Session, required ...string) bool {
	if sess == nil {
		return false
	}
	if g.Bypasses(sess.Role) {
		return true
	}
	if len(required) == 0 {
		return true
	}
	for _, p := range required {
		if sess.Has(p) {
			return true
		}
	}
	return false
}
