package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/dto"
	"medservice-console/internal/service"
	"medservice-console/pkg/response"
)

// AuditHandler 审计日志 HTTP 处理器
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// List 审计日志分页列表
// GET /api/v1/audit?page=&page_size=&resource=&action=&outcome=
func (h *AuditHandler) List(c *gin.Context) {
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}

	entries, total, err := h.auditSvc.List(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrAuditUnavailable) {
			response.Error(c, http.StatusServiceUnavailable, response.CodeInternal, "Audit log is not available")
			return
		}
		response.InternalError(c)
		return
	}

	response.OKPage(c, entries, total, req.Page, req.PageSize)
}
