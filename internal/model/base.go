package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 审计动作
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionBulkDelete = "bulk_delete"
)

// 审计结果
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// AuditEntry 控制台发起的写操作审计记录，对应 audit_entries
// 批量删除按条目逐条记录，部分失败可追溯到具体 ID
type AuditEntry struct {
	AuditID   string    `gorm:"type:uuid;primaryKey"                 json:"audit_id"`
	Resource  string    `gorm:"type:varchar(50);not null;index"      json:"resource"`
	Action    string    `gorm:"type:varchar(20);not null"            json:"action"`
	RecordID  int       `gorm:"not null;default:0"                   json:"record_id"`
	Outcome   string    `gorm:"type:varchar(10);not null"            json:"outcome"`
	Message   string    `gorm:"type:text"                            json:"message,omitempty"`
	ActorName string    `gorm:"type:varchar(100)"                    json:"actor_name,omitempty"`
	ActorRole string    `gorm:"type:varchar(50)"                     json:"actor_role,omitempty"`
	SessionID string    `gorm:"type:varchar(64)"                     json:"session_id,omitempty"`
	RequestID string    `gorm:"type:varchar(64)"                     json:"request_id,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"   json:"created_at"`
}

// TableName 指定表名
func (AuditEntry) TableName() string { return "audit_entries" }

// BeforeCreate 在应用侧生成主键，不依赖数据库扩展
func (a *AuditEntry) BeforeCreate(_ *gorm.DB) error {
	if a.AuditID == "" {
		a.AuditID = uuid.New().String()
	}
	return nil
}
