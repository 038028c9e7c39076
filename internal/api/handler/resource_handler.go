package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/dto"
	"medservice-console/internal/listing"
	"medservice-console/internal/resource"
	"medservice-console/internal/service"
	"medservice-console/pkg/response"
)

// ResourceHandler 资源模块 HTTP 处理器
// 十类资源共用同一组路由，由 :resource 参数选择描述符
type ResourceHandler struct {
	resourceSvc service.ResourceService
}

// NewResourceHandler 创建 ResourceHandler
func NewResourceHandler(resourceSvc service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceSvc: resourceSvc}
}

// List 分页列表
// GET /api/v1/resources/:resource?page=&per_page=&search=&<filters>
func (h *ResourceHandler) List(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	desc, err := h.resourceSvc.Lookup(c.Param("resource"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	result, err := h.resourceSvc.List(c.Request.Context(), sess, desc.Key, listing.Query{
		Page:    req.Page,
		Search:  req.Search,
		Filters: queryFilters(c, desc.Filters),
	}, req.PerPage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Options 下拉选项
// GET /api/v1/resources/:resource/options
func (h *ResourceHandler) Options(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	options, err := h.resourceSvc.Options(c.Request.Context(), sess, c.Param("resource"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": options})
}

// Create 创建记录
// POST /api/v1/resources/:resource
func (h *ResourceHandler) Create(c *gin.Context) {
	h.save(c, 0)
}

// Update 更新记录
// PUT /api/v1/resources/:resource/:id
func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}
	h.save(c, id)
}

// save 只解码不校验，校验在 Service 中去除首尾空白后进行
func (h *ResourceHandler) save(c *gin.Context, id int) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	desc, err := h.resourceSvc.Lookup(c.Param("resource"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	form := desc.NewForm()
	if err := decodeForm(c, form); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid request body")
		return
	}
	// 路径中的 ID 优先，忽略请求体中的 id
	form.SetRecordID(id)

	result, err := h.resourceSvc.Save(c.Request.Context(), sess, desc.Key, form)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if result.Created {
		response.Created(c, result.Message, result)
		return
	}
	response.OKMessage(c, result.Message, result)
}

func decodeForm(c *gin.Context, form resource.Form) error {
	if c.Request.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(c.Request.Body).Decode(form)
}

// Delete 删除单条记录
// DELETE /api/v1/resources/:resource/:id
func (h *ResourceHandler) Delete(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	msg, err := h.resourceSvc.Delete(c.Request.Context(), sess, c.Param("resource"), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKMessage(c, msg, gin.H{"id": id})
}

// PreviewBulkDelete 批量删除确认信息（记录名称回显）
// POST /api/v1/resources/:resource/bulk-delete/preview
func (h *ResourceHandler) PreviewBulkDelete(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}

	preview, err := h.resourceSvc.PreviewBulkDelete(c.Request.Context(), sess, c.Param("resource"), req.IDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKMessage(c, preview.Message, preview)
}

// BulkDelete 批量删除；逐条返回结果，部分失败时仍为 200
// POST /api/v1/resources/:resource/bulk-delete
func (h *ResourceHandler) BulkDelete(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}

	result, err := h.resourceSvc.BulkDelete(c.Request.Context(), sess, c.Param("resource"), req.IDs, req.Confirm)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKMessage(c, result.Summary(), result)
}
