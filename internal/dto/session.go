package dto

import "time"

// ── 会话模块 DTO ──

// OpenSessionRequest 使用上游签发的访问令牌建立会话
type OpenSessionRequest struct {
	Token string `json:"token" binding:"required,min=8,max=4096"`
}

// NavItem 导航中当前会话可见的资源及其可执行操作
type NavItem struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	CanExport bool   `json:"can_export"`
}

// SessionResponse 会话信息
type SessionResponse struct {
	Name        string    `json:"name,omitempty"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
	Resources   []NavItem `json:"resources"`
	CanAudit    bool      `json:"can_audit"`
}
