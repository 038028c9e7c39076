package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
// 业务数据都在上游 API，本地库只保存控制台自身的审计日志
type Repository struct {
	Audit AuditRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Audit: NewAuditRepo(db),
	}
}
