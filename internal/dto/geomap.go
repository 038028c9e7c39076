package dto

import "medservice-console/internal/model"

// ── 地图模块 DTO ──

// MapDataResponse 机构坐标与城市列表
type MapDataResponse struct {
	Locations []model.FacilityLocation `json:"locations"`
	Cities    []string                 `json:"cities"`
}

// MapViewRequest 地图选择状态
type MapViewRequest struct {
	FacilityIDs []int    `json:"facility_ids" binding:"omitempty,dive,gt=0"`
	Cities      []string `json:"cities"`
}

// LatLng 经纬度
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds 矩形范围
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// 镜头模式
const (
	CameraOverview = "overview"
	CameraFly      = "fly"
	CameraFit      = "fit"
)

// Camera 镜头
type Camera struct {
	Mode   string  `json:"mode"`
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom,omitempty"`
	Bounds *Bounds `json:"bounds,omitempty"`
}

// Popup 弹窗及其打开延迟
type Popup struct {
	FacilityID int   `json:"facility_id"`
	DelayMS    int64 `json:"delay_ms"`
}

// Circle 高亮圆
type Circle struct {
	FacilityID   int     `json:"facility_id"`
	Center       LatLng  `json:"center"`
	RadiusMeters float64 `json:"radius_meters"`
}

// MapViewResponse 计算后的地图视图
type MapViewResponse struct {
	Markers []model.FacilityLocation `json:"markers"`
	Camera  Camera                   `json:"camera"`
	Popups  []Popup                  `json:"popups"`
	Circles []Circle                 `json:"circles"`
}
