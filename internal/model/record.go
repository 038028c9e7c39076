package model

// Record 从上游列表接口规范化得到的一条业务记录
type Record interface {
	// RecordID 上游分配的数字 ID，创建后不可变
	RecordID() int
	// Label 用于下拉选项与删除确认框的显示名称
	Label() string
}

// Ref 上游预先关联好的外键对象（如员工所属部门）
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Meta 分页元数据，始终取自上游响应，本地不做推算
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
}

// Timestamps 上游维护的创建/更新时间，原样透传
type Timestamps struct {
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Named 仅含名称/slug/描述的简单字典类资源
// 部门、职位、医疗机构类型、设备分类共用
type Named struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Timestamps
}

func (n *Named) RecordID() int { return n.ID }
func (n *Named) Label() string { return n.Name }

// Division 部门
type Division struct{ Named }

// Position 职位
type Position struct{ Named }

// FacilityType 医疗机构类型
type FacilityType struct{ Named }

// DeviceCategory 医疗设备分类
type DeviceCategory struct{ Named }
