package resource

import (
	"strings"

	"medservice-console/pkg/slug"
)

// Form 创建/编辑表单
// RecordID 大于 0 表示编辑（PUT），否则为创建（POST）
type Form interface {
	RecordID() int
	SetRecordID(id int)
	// Normalize 去除首尾空白并应用 slug 回退规则
	Normalize()
	// Payload 发往上游的 JSON 请求体
	Payload() map[string]any
}

// NamedForm 名称 + slug + 描述，字典类资源共用
type NamedForm struct {
	ID          int    `json:"id"`
	Name        string `json:"name"        binding:"required,max=150"`
	Slug        string `json:"slug"        binding:"omitempty,max=160"`
	Description string `json:"description" binding:"omitempty,max=1000"`
}

func (f *NamedForm) RecordID() int      { return f.ID }
func (f *NamedForm) SetRecordID(id int) { f.ID = id }

func (f *NamedForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Slug = slug.OrFromName(f.Slug, f.Name)
}

func (f *NamedForm) Payload() map[string]any {
	return map[string]any{
		"name":        f.Name,
		"slug":        f.Slug,
		"description": f.Description,
	}
}

// EmployeeForm 员工表单
type EmployeeForm struct {
	ID             int    `json:"id"`
	Name           string `json:"name"            binding:"required,max=150"`
	Slug           string `json:"slug"`
	EmployeeNumber string `json:"employee_number" binding:"omitempty,max=50"`
	Email          string `json:"email"           binding:"omitempty,email"`
	Phone          string `json:"phone"           binding:"omitempty,max=30"`
	Status         string `json:"status"          binding:"omitempty,oneof=active inactive"`
	DivisionID     int    `json:"division_id"     binding:"omitempty,gte=0"`
	PositionID     int    `json:"position_id"     binding:"omitempty,gte=0"`
}

func (f *EmployeeForm) RecordID() int      { return f.ID }
func (f *EmployeeForm) SetRecordID(id int) { f.ID = id }

func (f *EmployeeForm) Normalize() {
	trimAll(&f.Name, &f.EmployeeNumber, &f.Email, &f.Phone, &f.Status)
	f.Slug = slug.OrFromName(f.Slug, f.Name)
}

func (f *EmployeeForm) Payload() map[string]any {
	return map[string]any{
		"name":            f.Name,
		"slug":            f.Slug,
		"employee_number": f.EmployeeNumber,
		"email":           f.Email,
		"phone":           f.Phone,
		"status":          f.Status,
		"division_id":     nullableID(f.DivisionID),
		"position_id":     nullableID(f.PositionID),
	}
}

// HealthFacilityForm 医疗机构表单
type HealthFacilityForm struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"             binding:"required,max=150"`
	Slug           string  `json:"slug"`
	Code           string  `json:"code"             binding:"omitempty,max=50"`
	FacilityTypeID int     `json:"facility_type_id" binding:"omitempty,gte=0"`
	Address        string  `json:"address"          binding:"omitempty,max=500"`
	City           string  `json:"city"             binding:"omitempty,max=100"`
	Latitude       float64 `json:"latitude"         binding:"omitempty,latitude"`
	Longitude      float64 `json:"longitude"        binding:"omitempty,longitude"`
}

func (f *HealthFacilityForm) RecordID() int      { return f.ID }
func (f *HealthFacilityForm) SetRecordID(id int) { f.ID = id }

func (f *HealthFacilityForm) Normalize() {
	trimAll(&f.Name, &f.Code, &f.Address, &f.City)
	f.Slug = slug.OrFromName(f.Slug, f.Name)
}

func (f *HealthFacilityForm) Payload() map[string]any {
	return map[string]any{
		"name":             f.Name,
		"slug":             f.Slug,
		"code":             f.Code,
		"facility_type_id": nullableID(f.FacilityTypeID),
		"address":          f.Address,
		"city":             f.City,
		"latitude":         f.Latitude,
		"longitude":        f.Longitude,
	}
}

// MedicalDeviceForm 医疗设备表单
type MedicalDeviceForm struct {
	ID               int    `json:"id"`
	Name             string `json:"name"               binding:"required,max=150"`
	Slug             string `json:"slug"`
	Brand            string `json:"brand"              binding:"omitempty,max=100"`
	Model            string `json:"model"              binding:"omitempty,max=100"`
	SerialNumber     string `json:"serial_number"      binding:"omitempty,max=100"`
	Description      string `json:"description"        binding:"omitempty,max=1000"`
	CategoryID       int    `json:"category_id"        binding:"omitempty,gte=0"`
	HealthFacilityID int    `json:"health_facility_id" binding:"omitempty,gte=0"`
}

func (f *MedicalDeviceForm) RecordID() int      { return f.ID }
func (f *MedicalDeviceForm) SetRecordID(id int) { f.ID = id }

func (f *MedicalDeviceForm) Normalize() {
	trimAll(&f.Name, &f.Brand, &f.Model, &f.SerialNumber, &f.Description)
	f.Slug = slug.OrFromName(f.Slug, f.Name)
}

func (f *MedicalDeviceForm) Payload() map[string]any {
	return map[string]any{
		"name":               f.Name,
		"slug":               f.Slug,
		"brand":              f.Brand,
		"model":              f.Model,
		"serial_number":      f.SerialNumber,
		"description":        f.Description,
		"category_id":        nullableID(f.CategoryID),
		"health_facility_id": nullableID(f.HealthFacilityID),
	}
}

// LISDeviceForm LIS 设备表单
type LISDeviceForm struct {
	ID               int    `json:"id"`
	Name             string `json:"name"               binding:"required,max=150"`
	Slug             string `json:"slug"`
	IPAddress        string `json:"ip_address"         binding:"omitempty,ip"`
	Status           string `json:"status"             binding:"omitempty,oneof=online offline maintenance"`
	Description      string `json:"description"        binding:"omitempty,max=1000"`
	HealthFacilityID int    `json:"health_facility_id" binding:"omitempty,gte=0"`
}

func (f *LISDeviceForm) RecordID() int      { return f.ID }
func (f *LISDeviceForm) SetRecordID(id int) { f.ID = id }

func (f *LISDeviceForm) Normalize() {
	trimAll(&f.Name, &f.IPAddress, &f.Status, &f.Description)
	f.Slug = slug.OrFromName(f.Slug, f.Name)
}

func (f *LISDeviceForm) Payload() map[string]any {
	return map[string]any{
		"name":               f.Name,
		"slug":               f.Slug,
		"ip_address":         f.IPAddress,
		"status":             f.Status,
		"description":        f.Description,
		"health_facility_id": nullableID(f.HealthFacilityID),
	}
}

// InformationForm 资讯表单；正文来自富文本编辑器，原样提交
type InformationForm struct {
	ID          int    `json:"id"`
	Title       string `json:"title"        binding:"required,max=200"`
	Slug        string `json:"slug"`
	Content     string `json:"content"`
	Status      string `json:"status"       binding:"omitempty,oneof=draft published"`
	PublishedAt string `json:"published_at" binding:"omitempty,datetime=2006-01-02"`
}

func (f *InformationForm) RecordID() int      { return f.ID }
func (f *InformationForm) SetRecordID(id int) { f.ID = id }

func (f *InformationForm) Normalize() {
	trimAll(&f.Title, &f.Status, &f.PublishedAt)
	f.Slug = slug.OrFromName(f.Slug, f.Title)
}

func (f *InformationForm) Payload() map[string]any {
	return map[string]any{
		"title":        f.Title,
		"slug":         f.Slug,
		"content":      f.Content,
		"status":       f.Status,
		"published_at": f.PublishedAt,
	}
}

// ServiceReportForm 服务报告表单；没有名称字段，故不做 slug 回退
type ServiceReportForm struct {
	ID               int    `json:"id"`
	ReportNumber     string `json:"report_number"      binding:"omitempty,max=50"`
	ServiceDate      string `json:"service_date"       binding:"required,datetime=2006-01-02"`
	Status           string `json:"status"             binding:"omitempty,oneof=pending in_progress done"`
	Complaint        string `json:"complaint"          binding:"omitempty,max=2000"`
	ActionTaken      string `json:"action_taken"       binding:"omitempty,max=2000"`
	EmployeeID       int    `json:"employee_id"        binding:"omitempty,gte=0"`
	HealthFacilityID int    `json:"health_facility_id" binding:"required,gt=0"`
	MedicalDeviceID  int    `json:"medical_device_id"  binding:"omitempty,gte=0"`
}

func (f *ServiceReportForm) RecordID() int      { return f.ID }
func (f *ServiceReportForm) SetRecordID(id int) { f.ID = id }

func (f *ServiceReportForm) Normalize() {
	trimAll(&f.ReportNumber, &f.ServiceDate, &f.Status, &f.Complaint, &f.ActionTaken)
}

func (f *ServiceReportForm) Payload() map[string]any {
	return map[string]any{
		"report_number":      f.ReportNumber,
		"service_date":       f.ServiceDate,
		"status":             f.Status,
		"complaint":          f.Complaint,
		"action_taken":       f.ActionTaken,
		"employee_id":        nullableID(f.EmployeeID),
		"health_facility_id": f.HealthFacilityID,
		"medical_device_id":  nullableID(f.MedicalDeviceID),
	}
}

// ── 辅助函数 ──

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// nullableID 0 表示未选择，上游期望 null
func nullableID(id int) any {
	if id <= 0 {
		return nil
	}
	return id
}
