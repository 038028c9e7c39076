package resource

import (
	"strings"

	"github.com/tidwall/gjson"

	"medservice-console/internal/model"
)

// ── 上游响应规范化 ──
//
// 上游字段缺失时取零值（字符串 ""、数字 0），数字以字符串形式返回也能识别。
// 不是 JSON 对象、或 ID 不是正整数的元素直接丢弃并计数，由调用方记录日志。

// Normalizer 将一条上游 JSON 记录转换为领域对象
type Normalizer func(r gjson.Result) model.Record

// NormalizeList 从响应体中取出记录数组并逐条规范化
// 兼容 { data: [...] }、{ data: { data: [...] } } 与直接返回数组三种形状
func NormalizeList(body gjson.Result, fn Normalizer) (records []model.Record, dropped int) {
	items := listItems(body)
	records = make([]model.Record, 0, len(items))
	for _, item := range items {
		if !item.IsObject() || recordID(item) <= 0 {
			dropped++
			continue
		}
		records = append(records, fn(item))
	}
	return records, dropped
}

// NormalizeOne 解析单条记录响应（{ data: {...} } 或裸对象）
func NormalizeOne(body gjson.Result, fn Normalizer) (model.Record, bool) {
	item := body
	if d := body.Get("data"); d.IsObject() {
		item = d
	}
	if !item.IsObject() || recordID(item) <= 0 {
		return nil, false
	}
	return fn(item), true
}

func listItems(body gjson.Result) []gjson.Result {
	if body.IsArray() {
		return body.Array()
	}
	data := body.Get("data")
	if data.IsArray() {
		return data.Array()
	}
	// Laravel paginator 包在 data 内部
	if inner := data.Get("data"); inner.IsArray() {
		return inner.Array()
	}
	return nil
}

// NormalizeMeta 读取分页元数据：meta 块 → data 内 paginator → 顶层字段
func NormalizeMeta(body gjson.Result) model.Meta {
	src := body
	switch {
	case body.Get("meta").IsObject():
		src = body.Get("meta")
	case body.Get("data.current_page").Exists():
		src = body.Get("data")
	}
	return model.Meta{
		CurrentPage: int(src.Get("current_page").Int()),
		LastPage:    int(src.Get("last_page").Int()),
		Total:       int(src.Get("total").Int()),
		PerPage:     int(src.Get("per_page").Int()),
	}
}

func recordID(r gjson.Result) int {
	return int(r.Get("id").Int())
}

func str(r gjson.Result, path string) string {
	return strings.TrimSpace(r.Get(path).String())
}

// ref 读取内嵌关联对象；缺失时退化为 <key>_id 平铺字段
func ref(r gjson.Result, key string) model.Ref {
	obj := r.Get(key)
	if obj.IsObject() {
		name := str(obj, "name")
		if name == "" {
			name = str(obj, "title")
		}
		return model.Ref{ID: int(obj.Get("id").Int()), Name: name}
	}
	return model.Ref{ID: int(r.Get(key + "_id").Int()), Name: str(r, key+"_name")}
}

func timestamps(r gjson.Result) model.Timestamps {
	return model.Timestamps{
		CreatedAt: str(r, "created_at"),
		UpdatedAt: str(r, "updated_at"),
	}
}

func named(r gjson.Result) model.Named {
	return model.Named{
		ID:          recordID(r),
		Name:        str(r, "name"),
		Slug:        str(r, "slug"),
		Description: str(r, "description"),
		Timestamps:  timestamps(r),
	}
}

func deviceSummaries(r gjson.Result) []model.DeviceSummary {
	arr := r.Array()
	out := make([]model.DeviceSummary, 0, len(arr))
	for _, d := range arr {
		if !d.IsObject() {
			continue
		}
		out = append(out, model.DeviceSummary{
			ID:           recordID(d),
			Name:         str(d, "name"),
			Brand:        str(d, "brand"),
			Model:        str(d, "model"),
			SerialNumber: str(d, "serial_number"),
		})
	}
	return out
}

// ── 各资源规范化函数 ──

func normalizeDivision(r gjson.Result) model.Record {
	return &model.Division{Named: named(r)}
}

func normalizePosition(r gjson.Result) model.Record {
	return &model.Position{Named: named(r)}
}

func normalizeFacilityType(r gjson.Result) model.Record {
	return &model.FacilityType{Named: named(r)}
}

func normalizeDeviceCategory(r gjson.Result) model.Record {
	return &model.DeviceCategory{Named: named(r)}
}

func normalizeEmployee(r gjson.Result) model.Record {
	number := str(r, "employee_number")
	if number == "" {
		number = str(r, "nip")
	}
	return &model.Employee{
		ID:             recordID(r),
		Name:           str(r, "name"),
		Slug:           str(r, "slug"),
		EmployeeNumber: number,
		Email:          str(r, "email"),
		Phone:          str(r, "phone"),
		Status:         str(r, "status"),
		Division:       ref(r, "division"),
		Position:       ref(r, "position"),
		Timestamps:     timestamps(r),
	}
}

func normalizeHealthFacility(r gjson.Result) model.Record {
	typ := ref(r, "facility_type")
	if typ.ID == 0 && typ.Name == "" {
		typ = ref(r, "type")
	}
	return &model.HealthFacility{
		ID:             recordID(r),
		Name:           str(r, "name"),
		Slug:           str(r, "slug"),
		Code:           str(r, "code"),
		Address:        str(r, "address"),
		City:           str(r, "city"),
		Latitude:       r.Get("latitude").Float(),
		Longitude:      r.Get("longitude").Float(),
		Type:           typ,
		MedicalDevices: deviceSummaries(r.Get("medical_devices")),
		Timestamps:     timestamps(r),
	}
}

func normalizeMedicalDevice(r gjson.Result) model.Record {
	return &model.MedicalDevice{
		ID:             recordID(r),
		Name:           str(r, "name"),
		Slug:           str(r, "slug"),
		Brand:          str(r, "brand"),
		Model:          str(r, "model"),
		SerialNumber:   str(r, "serial_number"),
		Description:    str(r, "description"),
		Category:       ref(r, "category"),
		HealthFacility: ref(r, "health_facility"),
		Timestamps:     timestamps(r),
	}
}

func normalizeLISDevice(r gjson.Result) model.Record {
	return &model.LISDevice{
		ID:             recordID(r),
		Name:           str(r, "name"),
		Slug:           str(r, "slug"),
		IPAddress:      str(r, "ip_address"),
		Status:         str(r, "status"),
		Description:    str(r, "description"),
		HealthFacility: ref(r, "health_facility"),
		Timestamps:     timestamps(r),
	}
}

func normalizeInformation(r gjson.Result) model.Record {
	title := str(r, "title")
	if title == "" {
		title = str(r, "name")
	}
	return &model.Information{
		ID:          recordID(r),
		Title:       title,
		Slug:        str(r, "slug"),
		Content:     r.Get("content").String(),
		Status:      str(r, "status"),
		PublishedAt: str(r, "published_at"),
		Timestamps:  timestamps(r),
	}
}

func normalizeServiceReport(r gjson.Result) model.Record {
	return &model.ServiceReport{
		ID:             recordID(r),
		ReportNumber:   str(r, "report_number"),
		ServiceDate:    str(r, "service_date"),
		Status:         str(r, "status"),
		Complaint:      str(r, "complaint"),
		ActionTaken:    str(r, "action_taken"),
		Employee:       ref(r, "employee"),
		HealthFacility: ref(r, "health_facility"),
		MedicalDevice:  ref(r, "medical_device"),
		Timestamps:     timestamps(r),
	}
}

// NormalizeLocations 地图接口：机构坐标 + 内嵌设备
func NormalizeLocations(body gjson.Result) (locations []model.FacilityLocation, dropped int) {
	items := listItems(body)
	locations = make([]model.FacilityLocation, 0, len(items))
	for _, item := range items {
		if !item.IsObject() || recordID(item) <= 0 {
			dropped++
			continue
		}
		typ := str(item, "facility_type.name")
		if typ == "" {
			typ = str(item, "type.name")
		}
		if t := item.Get("type"); typ == "" && !t.IsObject() {
			typ = strings.TrimSpace(t.String())
		}
		devices := item.Get("medical_devices")
		if !devices.Exists() {
			devices = item.Get("devices")
		}
		locations = append(locations, model.FacilityLocation{
			ID:        recordID(item),
			Name:      str(item, "name"),
			City:      str(item, "city"),
			Type:      typ,
			Address:   str(item, "address"),
			Latitude:  item.Get("latitude").Float(),
			Longitude: item.Get("longitude").Float(),
			Devices:   deviceSummaries(devices),
		})
	}
	return locations, dropped
}

// NormalizeCities 城市名列表；元素可以是字符串或 { name } 对象
func NormalizeCities(body gjson.Result) []string {
	items := listItems(body)
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		name := item.String()
		if item.IsObject() {
			name = item.Get("name").String()
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
