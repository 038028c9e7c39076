package apiclient

import (
	"net/url"
	"strconv"
	"strings"
)

// AllPages 上游约定的“不分页”取值
const AllPages = "All"

// Query 列表查询参数
type Query struct {
	Page    int
	PerPage int
	Search  string
	Filters map[string]string
	// All 为 true 时请求全量数据（per_page=All&page_all=All），用于下拉选项与导出
	All bool
}

// Values 只追加非空参数
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.All {
		v.Set("per_page", AllPages)
		v.Set("page_all", AllPages)
	} else {
		if q.Page > 0 {
			v.Set("page", strconv.Itoa(q.Page))
		}
		if q.PerPage > 0 {
			v.Set("per_page", strconv.Itoa(q.PerPage))
		}
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	for k, val := range q.Filters {
		if k == "" {
			continue
		}
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	return v
}
