package dto

// AuditListRequest 审计日志查询参数
type AuditListRequest struct {
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Resource string `form:"resource"  binding:"omitempty,max=50"`
	Action   string `form:"action"    binding:"omitempty,oneof=create update delete bulk_delete"`
	Outcome  string `form:"outcome"   binding:"omitempty,oneof=success failure"`
}
