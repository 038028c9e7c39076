package dto

// 导出格式
const (
	ExportXLSX  = "xlsx"
	ExportCSV   = "csv"
	ExportJSON  = "json"
	ExportPrint = "print"
)

// ExportRequest 导出参数；筛选项按资源声明从 query 中另行读取
type ExportRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=xlsx csv json print"`
	Search string `form:"search" binding:"omitempty,max=200"`
}

// ExportFile 导出结果
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
