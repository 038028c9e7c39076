package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medservice-console/internal/dto"
	"medservice-console/internal/model"
	"medservice-console/internal/repository"
	"medservice-console/internal/session"
)

// ErrAuditUnavailable 未配置审计库
var ErrAuditUnavailable = errors.New("audit log is not available")

// AuditService 审计日志业务接口
// 写入失败只记录日志，不影响用户操作
type AuditService interface {
	Record(ctx context.Context, sess *session.Session, entry model.AuditEntry)
	RecordBatch(ctx context.Context, sess *session.Session, entries []model.AuditEntry)
	List(ctx context.Context, req *dto.AuditListRequest) ([]model.AuditEntry, int64, error)
}

type auditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例；repo 为 nil 时写入被忽略
func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

// ────────────────────── Record ──────────────────────

func (s *auditService) Record(ctx context.Context, sess *session.Session, entry model.AuditEntry) {
	s.RecordBatch(ctx, sess, []model.AuditEntry{entry})
}

func (s *auditService) RecordBatch(ctx context.Context, sess *session.Session, entries []model.AuditEntry) {
	if s.repo == nil || len(entries) == 0 {
		return
	}

	rid := session.RequestID(ctx)
	for i := range entries {
		entries[i].RequestID = rid
		if sess != nil {
			entries[i].ActorName = sess.Name
			entries[i].ActorRole = sess.Role
			entries[i].SessionID = sess.ID
		}
	}

	// 审计写入不随客户端请求取消
	if err := s.repo.CreateBatch(context.WithoutCancel(ctx), entries); err != nil {
		s.logger.Error("写入审计日志失败",
			zap.String("resource", entries[0].Resource),
			zap.String("action", entries[0].Action),
			zap.Int("count", len(entries)),
			zap.Error(err),
		)
	}
}

// ────────────────────── List ──────────────────────

func (s *auditService) List(ctx context.Context, req *dto.AuditListRequest) ([]model.AuditEntry, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrAuditUnavailable
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := repository.AuditFilter{
		Resource: req.Resource,
		Action:   req.Action,
		Outcome:  req.Outcome,
	}
	entries, total, err := s.repo.List(ctx, filter, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.Error(err))
		return nil, 0, err
	}
	return entries, total, nil
}
