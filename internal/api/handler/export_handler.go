package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/dto"
	"medservice-console/internal/service"
	"medservice-console/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	resourceSvc service.ResourceService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, resourceSvc service.ResourceService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, resourceSvc: resourceSvc}
}

// Export 导出筛选条件下的全部记录
// GET /api/v1/export/:resource?format=xlsx|csv|json|print&search=&<filters>
func (h *ExportHandler) Export(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	desc, err := h.resourceSvc.Lookup(c.Param("resource"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "format must be one of xlsx, csv, json, print")
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), sess, desc.Key, &req, queryFilters(c, desc.Filters))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 打印页在浏览器中直接打开
	if file.Filename != "" {
		c.Header("Content-Description", "File Transfer")
		c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(file.Filename))
	}
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotExportable):
		response.BadRequest(c, response.CodeUnknownResource, "This resource cannot be exported")
	case errors.Is(err, service.ErrExportFormat):
		response.BadRequest(c, response.CodeBadParams, "format must be one of xlsx, csv, json, print")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleServiceError(c, err)
	}
}
