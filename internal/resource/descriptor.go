// Package resource 描述控制台管理的每一类上游资源：上游路径、可用筛选项、
// 权限名、记录归一化函数、表单工厂与导出列。
package resource

import (
	"sort"
	"strconv"
	"strings"

	"medservice-console/internal/model"
)

// Action 资源操作，与权限名前缀一致
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Column 导出列
type Column struct {
	Header string
	Value  func(r model.Record) string
}

// Descriptor 单个资源的描述
type Descriptor struct {
	Key       string // 路由与上游路径中的资源名，如 health-facilities
	Singular  string // 权限名后缀，如 health-facility
	Title     string // 提示消息中的名称，如 Health facility
	Path      string // 上游集合路径
	Filters   []string
	Normalize Normalizer
	NewForm   func() Form
	Columns   []Column
}

// Permission 返回 <action>-<singular>
func (d *Descriptor) Permission(a Action) string {
	return string(a) + "-" + d.Singular
}

// AllowedFilters 丢弃未声明的筛选键与空值
func (d *Descriptor) AllowedFilters(in map[string]string) map[string]string {
	out := make(map[string]string, len(d.Filters))
	for _, key := range d.Filters {
		if v := strings.TrimSpace(in[key]); v != "" {
			out[key] = v
		}
	}
	return out
}

// Exportable 是否声明了导出列
func (d *Descriptor) Exportable() bool { return len(d.Columns) > 0 }

// Registry 资源注册表
type Registry struct {
	byKey map[string]*Descriptor
	order []string
}

// NewRegistry 按传入顺序注册
func NewRegistry(descriptors ...*Descriptor) *Registry {
	r := &Registry{byKey: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := r.byKey[d.Key]; dup {
			continue
		}
		r.byKey[d.Key] = d
		r.order = append(r.order, d.Key)
	}
	return r
}

// Lookup 按 key 查找
func (r *Registry) Lookup(key string) (*Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// All 按注册顺序返回
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

// Keys 排序后的 key 列表
func (r *Registry) Keys() []string {
	keys := append([]string(nil), r.order...)
	sort.Strings(keys)
	return keys
}

// ────────────────────── 默认注册表 ──────────────────────

// Default 控制台管理的十类资源
func Default() *Registry {
	return NewRegistry(
		&Descriptor{
			Key: "divisions", Singular: "division", Title: "Division",
			Path:      "/api/divisions",
			Normalize: normalizeDivision,
			NewForm:   func() Form { return &NamedForm{} },
			Columns:   namedColumns(),
		},
		&Descriptor{
			Key: "employees", Singular: "employee", Title: "Employee",
			Path:      "/api/employees",
			Filters:   []string{"division_id", "position_id", "status"},
			Normalize: normalizeEmployee,
			NewForm:   func() Form { return &EmployeeForm{} },
			Columns: []Column{
				idColumn(),
				{Header: "Employee Number", Value: employee(func(e *model.Employee) string { return e.EmployeeNumber })},
				{Header: "Name", Value: label},
				{Header: "Email", Value: employee(func(e *model.Employee) string { return e.Email })},
				{Header: "Phone", Value: employee(func(e *model.Employee) string { return e.Phone })},
				{Header: "Division", Value: employee(func(e *model.Employee) string { return e.Division.Name })},
				{Header: "Position", Value: employee(func(e *model.Employee) string { return e.Position.Name })},
				{Header: "Status", Value: employee(func(e *model.Employee) string { return e.Status })},
			},
		},
		&Descriptor{
			Key: "positions", Singular: "position", Title: "Position",
			Path:      "/api/positions",
			Normalize: normalizePosition,
			NewForm:   func() Form { return &NamedForm{} },
			Columns:   namedColumns(),
		},
		&Descriptor{
			Key: "health-facilities", Singular: "health-facility", Title: "Health facility",
			Path:      "/api/health-facilities",
			Filters:   []string{"facility_type_id", "city"},
			Normalize: normalizeHealthFacility,
			NewForm:   func() Form { return &HealthFacilityForm{} },
			Columns: []Column{
				idColumn(),
				{Header: "Code", Value: facility(func(h *model.HealthFacility) string { return h.Code })},
				{Header: "Name", Value: label},
				{Header: "Type", Value: facility(func(h *model.HealthFacility) string { return h.Type.Name })},
				{Header: "City", Value: facility(func(h *model.HealthFacility) string { return h.City })},
				{Header: "Address", Value: facility(func(h *model.HealthFacility) string { return h.Address })},
				{Header: "Devices", Value: facility(func(h *model.HealthFacility) string { return strconv.Itoa(len(h.MedicalDevices)) })},
			},
		},
		&Descriptor{
			Key: "facility-types", Singular: "facility-type", Title: "Facility type",
			Path:      "/api/facility-types",
			Normalize: normalizeFacilityType,
			NewForm:   func() Form { return &NamedForm{} },
			Columns:   namedColumns(),
		},
		&Descriptor{
			Key: "medical-devices", Singular: "medical-device", Title: "Medical device",
			Path:      "/api/medical-devices",
			Filters:   []string{"category_id", "brand", "model"},
			Normalize: normalizeMedicalDevice,
			NewForm:   func() Form { return &MedicalDeviceForm{} },
			Columns: []Column{
				idColumn(),
				{Header: "Name", Value: label},
				{Header: "Brand", Value: device(func(d *model.MedicalDevice) string { return d.Brand })},
				{Header: "Model", Value: device(func(d *model.MedicalDevice) string { return d.Model })},
				{Header: "Serial Number", Value: device(func(d *model.MedicalDevice) string { return d.SerialNumber })},
				{Header: "Category", Value: device(func(d *model.MedicalDevice) string { return d.Category.Name })},
				{Header: "Health Facility", Value: device(func(d *model.MedicalDevice) string { return d.HealthFacility.Name })},
			},
		},
		&Descriptor{
			Key: "device-categories", Singular: "device-category", Title: "Device category",
			Path:      "/api/device-categories",
			Normalize: normalizeDeviceCategory,
			NewForm:   func() Form { return &NamedForm{} },
			Columns:   namedColumns(),
		},
		&Descriptor{
			Key: "information", Singular: "information", Title: "Information",
			Path:      "/api/information",
			Filters:   []string{"status"},
			Normalize: normalizeInformation,
			NewForm:   func() Form { return &InformationForm{} },
			Columns: []Column{
				idColumn(),
				{Header: "Title", Value: label},
				{Header: "Slug", Value: information(func(i *model.Information) string { return i.Slug })},
				{Header: "Status", Value: information(func(i *model.Information) string { return i.Status })},
				{Header: "Published At", Value: information(func(i *model.Information) string { return i.PublishedAt })},
			},
		},
		&Descriptor{
			Key: "service-reports", Singular: "service-report", Title: "Service report",
			Path:      "/api/service-reports",
			Filters:   []string{"status", "start_date", "end_date", "health_facility_id", "employee_id"},
			Normalize: normalizeServiceReport,
			NewForm:   func() Form { return &ServiceReportForm{} },
			Columns:   ServiceReportColumns(),
		},
		&Descriptor{
			Key: "lis-devices", Singular: "lis-device", Title: "LIS device",
			Path:      "/api/lis-devices",
			Filters:   []string{"health_facility_id", "status"},
			Normalize: normalizeLISDevice,
			NewForm:   func() Form { return &LISDeviceForm{} },
			Columns: []Column{
				idColumn(),
				{Header: "Name", Value: label},
				{Header: "IP Address", Value: lisDevice(func(d *model.LISDevice) string { return d.IPAddress })},
				{Header: "Status", Value: lisDevice(func(d *model.LISDevice) string { return d.Status })},
				{Header: "Health Facility", Value: lisDevice(func(d *model.LISDevice) string { return d.HealthFacility.Name })},
			},
		},
	)
}

// ServiceReportColumns 服务报告导出列（表格、CSV 与打印页共用）
func ServiceReportColumns() []Column {
	return []Column{
		{Header: "Report Number", Value: label},
		{Header: "Service Date", Value: report(func(r *model.ServiceReport) string { return r.ServiceDate })},
		{Header: "Health Facility", Value: report(func(r *model.ServiceReport) string { return r.HealthFacility.Name })},
		{Header: "Medical Device", Value: report(func(r *model.ServiceReport) string { return r.MedicalDevice.Name })},
		{Header: "Technician", Value: report(func(r *model.ServiceReport) string { return r.Employee.Name })},
		{Header: "Complaint", Value: report(func(r *model.ServiceReport) string { return r.Complaint })},
		{Header: "Action Taken", Value: report(func(r *model.ServiceReport) string { return r.ActionTaken })},
		{Header: "Status", Value: report(func(r *model.ServiceReport) string { return r.Status })},
	}
}

// ── 列取值辅助 ──

func idColumn() Column {
	return Column{Header: "ID", Value: func(r model.Record) string { return strconv.Itoa(r.RecordID()) }}
}

func label(r model.Record) string { return r.Label() }

func namedColumns() []Column {
	return []Column{
		idColumn(),
		{Header: "Name", Value: label},
		{Header: "Slug", Value: namedField(func(n *model.Named) string { return n.Slug })},
		{Header: "Description", Value: namedField(func(n *model.Named) string { return n.Description })},
	}
}

// namedField 取字典类资源内嵌的 Named
func namedField(fn func(*model.Named) string) func(model.Record) string {
	return func(r model.Record) string {
		switch v := r.(type) {
		case *model.Division:
			return fn(&v.Named)
		case *model.Position:
			return fn(&v.Named)
		case *model.FacilityType:
			return fn(&v.Named)
		case *model.DeviceCategory:
			return fn(&v.Named)
		}
		return ""
	}
}

func employee(fn func(*model.Employee) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.Employee); ok {
			return fn(v)
		}
		return ""
	}
}

func facility(fn func(*model.HealthFacility) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.HealthFacility); ok {
			return fn(v)
		}
		return ""
	}
}

func device(fn func(*model.MedicalDevice) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.MedicalDevice); ok {
			return fn(v)
		}
		return ""
	}
}

func lisDevice(fn func(*model.LISDevice) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.LISDevice); ok {
			return fn(v)
		}
		return ""
	}
}

func information(fn func(*model.Information) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.Information); ok {
			return fn(v)
		}
		return ""
	}
}

func report(fn func(*model.ServiceReport) string) func(model.Record) string {
	return func(r model.Record) string {
		if v, ok := r.(*model.ServiceReport); ok {
			return fn(v)
		}
		return ""
	}
}
