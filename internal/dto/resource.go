package dto

import "medservice-console/internal/model"

// ── 资源模块 DTO ──

// ListRequest 列表查询参数；筛选项按资源声明从 query 中另行读取
type ListRequest struct {
	Page    int    `form:"page"     binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Search  string `form:"search"   binding:"omitempty,max=200"`
}

// ListResponse 列表结果，分页信息原样取自上游
type ListResponse struct {
	List       []model.Record `json:"list"`
	Pagination model.Meta     `json:"pagination"`
	Dropped    int            `json:"dropped,omitempty"`
}

// Option 下拉选项
type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SaveResult 创建/更新结果
type SaveResult struct {
	Message string       `json:"message"`
	Created bool         `json:"created"`
	Record  model.Record `json:"record,omitempty"`
}

// BulkDeleteRequest 批量删除请求；执行时 Confirm 必须为 true
type BulkDeleteRequest struct {
	IDs     []int `json:"ids"     binding:"required,min=1,max=500,dive,gt=0"`
	Confirm bool  `json:"confirm"`
}

// BulkPreviewItem 待删除记录
type BulkPreviewItem struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Found bool   `json:"found"`
}

// BulkPreviewResponse 批量删除确认信息
type BulkPreviewResponse struct {
	Message string            `json:"message"`
	Items   []BulkPreviewItem `json:"items"`
}
