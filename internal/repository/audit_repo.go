package repository

import (
	"context"

	"gorm.io/gorm"

	"medservice-console/internal/model"
)

// AuditFilter 审计日志查询条件
type AuditFilter struct {
	Resource string
	Action   string
	Outcome  string
}

// AuditRepository 审计日志数据访问接口
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditEntry) error
	CreateBatch(ctx context.Context, entries []model.AuditEntry) error
	List(ctx context.Context, filter AuditFilter, offset, limit int) ([]model.AuditEntry, int64, error)
}

// auditRepo AuditRepository 的 GORM 实现
type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实例
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, entry *model.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreateBatch 批量删除的逐条结果一次写入
func (r *auditRepo) CreateBatch(ctx context.Context, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

func (r *auditRepo) List(ctx context.Context, filter AuditFilter, offset, limit int) ([]model.AuditEntry, int64, error) {
	var entries []model.AuditEntry
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AuditEntry{})
	if filter.Resource != "" {
		db = db.Where("resource = ?", filter.Resource)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.Outcome != "" {
		db = db.Where("outcome = ?", filter.Outcome)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
