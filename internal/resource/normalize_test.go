package resource

import (
	"testing"

	"github.com/tidwall/gjson"

	"medservice-console/internal/model"
)

func TestNormalizeList_DropsMalformed(t *testing.T) {
	body := gjson.Parse(`{"data":[
		{"id":1,"name":"IT","slug":"it"},
		"garbage",
		{"name":"no id"},
		{"id":"7","name":"  Finance  "},
		{"id":-3,"name":"negative"}
	]}`)

	records, dropped := NormalizeList(body, normalizeDivision)
	if len(records) != 2 {
		t.Fatalf("期望 2 条有效记录，实际 %d", len(records))
	}
	if dropped != 3 {
		t.Errorf("期望丢弃 3 条，实际 %d", dropped)
	}
	d := records[1].(*model.Division)
	if d.ID != 7 || d.Name != "Finance" {
		t.Errorf("字符串数字 ID 与空白未正确处理: %+v", d)
	}
}

func TestNormalizeList_Shapes(t *testing.T) {
	cases := map[string]string{
		"data 数组":      `{"data":[{"id":1,"name":"a"}]}`,
		"paginator 嵌套": `{"data":{"current_page":1,"data":[{"id":1,"name":"a"}]}}`,
		"裸数组":          `[{"id":1,"name":"a"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			records, dropped := NormalizeList(gjson.Parse(raw), normalizePosition)
			if len(records) != 1 || dropped != 0 {
				t.Errorf("期望 1 条记录 0 条丢弃，实际 %d/%d", len(records), dropped)
			}
		})
	}
}

func TestNormalizeList_NoData(t *testing.T) {
	records, dropped := NormalizeList(gjson.Parse(`{"message":"ok"}`), normalizePosition)
	if len(records) != 0 || dropped != 0 {
		t.Errorf("无 data 时应返回空列表，实际 %d/%d", len(records), dropped)
	}
}

func TestNormalizeMeta(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want model.Meta
	}{
		{"meta 块", `{"data":[],"meta":{"current_page":2,"last_page":5,"total":48,"per_page":10}}`, model.Meta{CurrentPage: 2, LastPage: 5, Total: 48, PerPage: 10}},
		{"data paginator", `{"data":{"current_page":3,"last_page":4,"total":31,"per_page":"10","data":[]}}`, model.Meta{CurrentPage: 3, LastPage: 4, Total: 31, PerPage: 10}},
		{"顶层字段", `{"data":[],"current_page":1,"last_page":1,"total":3,"per_page":15}`, model.Meta{CurrentPage: 1, LastPage: 1, Total: 3, PerPage: 15}},
		{"缺失", `{"data":[]}`, model.Meta{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeMeta(gjson.Parse(tc.raw)); got != tc.want {
				t.Errorf("期望 %+v，实际 %+v", tc.want, got)
			}
		})
	}
}

func TestNormalizeEmployee_Relations(t *testing.T) {
	raw := `{"id":5,"name":"Budi","nip":"1988","division":{"id":2,"name":"IT"},"position_id":"9","position_name":"Technician"}`
	e := normalizeEmployee(gjson.Parse(raw)).(*model.Employee)
	if e.EmployeeNumber != "1988" {
		t.Errorf("期望 nip 回退为员工号，实际 %q", e.EmployeeNumber)
	}
	if e.Division != (model.Ref{ID: 2, Name: "IT"}) {
		t.Errorf("内嵌部门解析错误: %+v", e.Division)
	}
	if e.Position != (model.Ref{ID: 9, Name: "Technician"}) {
		t.Errorf("平铺职位解析错误: %+v", e.Position)
	}
}

func TestNormalizeHealthFacility_Devices(t *testing.T) {
	raw := `{"id":1,"name":"RSUD","latitude":"-6.2","longitude":106.8,
		"facility_type":{"id":3,"name":"Hospital"},
		"medical_devices":[{"id":10,"name":"X-Ray","brand":"GE"},"bad"]}`
	h := normalizeHealthFacility(gjson.Parse(raw)).(*model.HealthFacility)
	if h.Latitude != -6.2 || h.Longitude != 106.8 {
		t.Errorf("坐标解析错误: %v,%v", h.Latitude, h.Longitude)
	}
	if h.Type.Name != "Hospital" {
		t.Errorf("机构类型解析错误: %+v", h.Type)
	}
	if len(h.MedicalDevices) != 1 || h.MedicalDevices[0].Brand != "GE" {
		t.Errorf("设备列表解析错误: %+v", h.MedicalDevices)
	}
}

func TestNormalizeOne(t *testing.T) {
	if _, ok := NormalizeOne(gjson.Parse(`{"data":{"id":0}}`), normalizeDivision); ok {
		t.Error("ID 为 0 的记录应被拒绝")
	}
	r, ok := NormalizeOne(gjson.Parse(`{"data":{"id":4,"title":"Notice"}}`), normalizeInformation)
	if !ok || r.Label() != "Notice" {
		t.Errorf("单条记录解析错误: %v %v", r, ok)
	}
}

func TestNormalizeServiceReport_LabelFallback(t *testing.T) {
	r := normalizeServiceReport(gjson.Parse(`{"id":12}`))
	if r.Label() != "#12" {
		t.Errorf("期望 #12，实际 %q", r.Label())
	}
}

func TestNormalizeLocations(t *testing.T) {
	raw := `{"data":[
		{"id":1,"name":"A","city":"Bandung","type":"Clinic","latitude":-6.9,"longitude":107.6,"devices":[{"id":1,"name":"ECG"}]},
		{"id":2,"name":"B","type":{"name":"Hospital"}},
		{"name":"no id"}
	]}`
	locs, dropped := NormalizeLocations(gjson.Parse(raw))
	if len(locs) != 2 || dropped != 1 {
		t.Fatalf("期望 2 条 1 条丢弃，实际 %d/%d", len(locs), dropped)
	}
	if locs[0].Type != "Clinic" || len(locs[0].Devices) != 1 {
		t.Errorf("第一条解析错误: %+v", locs[0])
	}
	if locs[1].Type != "Hospital" {
		t.Errorf("对象形式的类型未解析: %q", locs[1].Type)
	}
	if locs[1].HasCoordinates() {
		t.Error("缺失坐标不应视为有效")
	}
}

func TestNormalizeCities(t *testing.T) {
	got := NormalizeCities(gjson.Parse(`{"data":["Bandung",{"name":"Jakarta"},"Bandung","  ",{"id":1}]}`))
	if len(got) != 2 || got[0] != "Bandung" || got[1] != "Jakarta" {
		t.Errorf("期望 [Bandung Jakarta]，实际 %v", got)
	}
}
