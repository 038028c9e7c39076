package slug

import "testing"

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Sales & Marketing":       "sales-marketing",
		"  Radiology  Unit  ":     "radiology-unit",
		"ICU -- North Wing":       "icu-north-wing",
		"Puskesmas Cempaka Putih": "puskesmas-cempaka-putih",
		"Électro-Médical":         "electro-medical",
		"X-Ray/CT (2024)":         "x-rayct-2024",
		"&&&":                     "",
		"":                        "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) 期望=%q，实际=%q", in, want, got)
		}
	}
}

func TestOrFromName(t *testing.T) {
	if got := OrFromName("", "Sales & Marketing"); got != "sales-marketing" {
		t.Errorf("空 slug 应从名称推导，实际=%q", got)
	}
	if got := OrFromName("   ", "Lab"); got != "lab" {
		t.Errorf("空白 slug 应从名称推导，实际=%q", got)
	}
	if got := OrFromName("Custom Slug", "Lab"); got != "custom-slug" {
		t.Errorf("用户填写的 slug 应被规范化，实际=%q", got)
	}
}
