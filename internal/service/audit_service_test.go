package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"medservice-console/internal/dto"
	"medservice-console/internal/model"
	"medservice-console/internal/session"
)

// ── Record 测试 ──

func TestAuditService_RecordFillsActor(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())
	ctx := session.WithRequestID(context.Background(), "req-42")

	svc.Record(ctx, adminSession(), model.AuditEntry{Resource: "divisions", Action: model.AuditActionDelete, RecordID: 3, Outcome: model.AuditOutcomeSuccess})

	if len(repo.entries) != 1 {
		t.Fatalf("应写入 1 条, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.RequestID != "req-42" {
		t.Errorf("RequestID = %q", e.RequestID)
	}
	if e.ActorName != "Siti" || e.ActorRole != "admin" || e.SessionID != "sess-1" {
		t.Errorf("操作人信息不正确: %+v", e)
	}
}

func TestAuditService_RecordWithCanceledContext(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.RecordBatch(ctx, nil, []model.AuditEntry{{Resource: "divisions"}, {Resource: "divisions"}})
	if len(repo.entries) != 2 {
		t.Errorf("请求取消后仍应写入审计, got %d", len(repo.entries))
	}
}

func TestAuditService_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, zap.NewNop())

	// 未配置数据库时写入为空操作
	svc.Record(context.Background(), adminSession(), model.AuditEntry{Resource: "divisions"})

	if _, _, err := svc.List(context.Background(), &dto.AuditListRequest{}); !errors.Is(err, ErrAuditUnavailable) {
		t.Fatalf("期望 ErrAuditUnavailable, got %v", err)
	}
}

// ── List 测试 ──

func TestAuditService_List(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())
	for i := 1; i <= 25; i++ {
		res := "divisions"
		if i%5 == 0 {
			res = "employees"
		}
		repo.entries = append(repo.entries, model.AuditEntry{Resource: res, RecordID: i, Outcome: model.AuditOutcomeSuccess})
	}

	req := &dto.AuditListRequest{}
	entries, total, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("应填充默认分页: %+v", req)
	}
	if total != 25 || len(entries) != 20 {
		t.Errorf("total/len = %d/%d, 期望 25/20", total, len(entries))
	}

	entries, total, err = svc.List(context.Background(), &dto.AuditListRequest{Page: 1, PageSize: 10, Resource: "employees"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 5 || len(entries) != 5 {
		t.Errorf("按资源筛选 total/len = %d/%d, 期望 5/5", total, len(entries))
	}
}
