package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"medservice-console/internal/dto"
	"medservice-console/internal/model"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
)

// ── 导出模块业务错误 ──

var (
	ErrExportFormat       = errors.New("unsupported export format")
	ErrExportGenerateFail = errors.New("failed to generate export file")
)

// ExportService 导出业务接口
//
// 导出拉取筛选条件下的全部记录（per_page=All），按资源声明的列输出为
// Excel、CSV、JSON 或打印页。文件内容以字节返回，由 Handler 设置响应头。
type ExportService interface {
	Export(ctx context.Context, sess *session.Session, key string, req *dto.ExportRequest, filters map[string]string) (*dto.ExportFile, error)
}

type exportService struct {
	resources ResourceService
	registry  *resource.Registry
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(resources ResourceService, registry *resource.Registry, logger *zap.Logger) ExportService {
	return &exportService{resources: resources, registry: registry, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// Export 按格式生成导出文件
// ═══════════════════════════════════════════════════════════

func (s *exportService) Export(ctx context.Context, sess *session.Session, key string, req *dto.ExportRequest, filters map[string]string) (*dto.ExportFile, error) {
	desc, ok := s.registry.Lookup(key)
	if !ok {
		return nil, ErrUnknownResource
	}
	if !desc.Exportable() {
		return nil, ErrNotExportable
	}

	format := req.Format
	if format == "" {
		format = dto.ExportXLSX
	}

	records, err := s.resources.All(ctx, sess, key, req.Search, filters)
	if err != nil {
		return nil, err
	}

	now := s.now()
	base := fmt.Sprintf("%s_%s", desc.Key, now.Format("20060102_150405"))
	table := buildTable(desc.Columns, records)

	var file *dto.ExportFile
	switch format {
	case dto.ExportXLSX:
		file, err = s.writeXLSX(desc, table, now)
		if file != nil {
			file.Filename = base + ".xlsx"
		}
	case dto.ExportCSV:
		file, err = writeCSV(table)
		if file != nil {
			file.Filename = base + ".csv"
		}
	case dto.ExportJSON:
		file, err = writeJSON(records)
		if file != nil {
			file.Filename = base + ".json"
		}
	case dto.ExportPrint:
		file, err = writePrint(desc, table, now)
	default:
		return nil, ErrExportFormat
	}
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.String("resource", key), zap.String("format", format), zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	s.logger.Info("导出完成", zap.String("resource", key), zap.String("format", format), zap.Int("rows", len(records)))
	return file, nil
}

// exportTable 表头 + 已取值的行
type exportTable struct {
	Headers []string
	Rows    [][]string
}

func buildTable(cols []resource.Column, records []model.Record) exportTable {
	t := exportTable{Headers: make([]string, len(cols)), Rows: make([][]string, 0, len(records))}
	for i, c := range cols {
		t.Headers[i] = c.Header
	}
	for _, r := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.Value(r)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ────────────────────── Excel ──────────────────────

func (s *exportService) writeXLSX(desc *resource.Descriptor, t exportTable, now time.Time) (*dto.ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := desc.Title
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F6F8B"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 13},
	})

	// 标题行
	lastCol := colName(len(t.Headers) - 1)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s)", desc.Title, now.Format("2006-01-02 15:04")))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// 表头
	for i, h := range t.Headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
		f.SetColWidth(sheetName, colName(i), colName(i), columnWidth(t, i))
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	for r, row := range t.Rows {
		for i, v := range row {
			f.SetCellValue(sheetName, cell(colName(i), r+3), v)
		}
	}

	if len(t.Rows) > 0 {
		_ = f.AutoFilter(sheetName, fmt.Sprintf("A2:%s", cell(lastCol, len(t.Rows)+2)), nil)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return &dto.ExportFile{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf.Bytes(),
	}, nil
}

// columnWidth 按最长内容估算列宽，限制在 [10, 60]
func columnWidth(t exportTable, col int) float64 {
	width := len([]rune(t.Headers[col]))
	for _, row := range t.Rows {
		if n := len([]rune(row[col])); n > width {
			width = n
		}
	}
	return float64(min(max(width+2, 10), 60))
}

// ────────────────────── CSV ──────────────────────

// utf8BOM 让 Excel 以 UTF-8 打开 CSV
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func writeCSV(t exportTable) (*dto.ExportFile, error) {
	buf := bytes.NewBuffer(append([]byte(nil), utf8BOM...))
	w := csv.NewWriter(buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return &dto.ExportFile{ContentType: "text/csv; charset=utf-8", Body: buf.Bytes()}, nil
}

// ────────────────────── JSON ──────────────────────

func writeJSON(records []model.Record) (*dto.ExportFile, error) {
	if records == nil {
		records = []model.Record{}
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return &dto.ExportFile{ContentType: "application/json; charset=utf-8", Body: body}, nil
}

// ────────────────────── 打印页 ──────────────────────

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; margin: 24px; }
h1 { font-size: 18px; margin-bottom: 4px; }
p.meta { color: #555; margin-top: 0; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; vertical-align: top; }
th { background: #eee; }
@media print { body { margin: 0; } }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.Generated}} · {{len .Table.Rows}} records</p>
<table>
<thead><tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Table.Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- else}}
<tr><td colspan="{{len .Table.Headers}}">No records</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

func writePrint(desc *resource.Descriptor, t exportTable, now time.Time) (*dto.ExportFile, error) {
	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, struct {
		Title     string
		Generated string
		Table     exportTable
	}{
		Title:     desc.Title + " Report",
		Generated: now.Format("2006-01-02 15:04"),
		Table:     t,
	})
	if err != nil {
		return nil, err
	}
	return &dto.ExportFile{ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
