// Package geomap 根据地图选择状态计算展示集合、镜头、弹窗与高亮圆。
// 纯计算，不访问网络。
package geomap

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"medservice-console/config"
	"medservice-console/internal/dto"
	"medservice-console/internal/model"
)

// minFitSpan 多个机构坐标几乎重合时的最小范围（度）
const minFitSpan = 0.01

// Options 镜头参数
type Options struct {
	Overview        dto.LatLng
	OverviewZoom    float64
	FocusZoom       float64
	FitPadding      float64 // 范围每边外扩的比例
	PopupStagger    time.Duration
	HighlightRadius float64 // 米
}

// OptionsFromConfig 从配置构造
func OptionsFromConfig(cfg *config.MapConfig) Options {
	return Options{
		Overview:        dto.LatLng{Lat: cfg.OverviewLat, Lng: cfg.OverviewLng},
		OverviewZoom:    cfg.OverviewZoom,
		FocusZoom:       cfg.FocusZoom,
		FitPadding:      cfg.FitPadding,
		PopupStagger:    cfg.PopupStagger,
		HighlightRadius: cfg.HighlightRadius,
	}
}

// Filter 先按城市过滤，再限制到所选机构；两者为空时不过滤
func Filter(locations []model.FacilityLocation, facilityIDs []int, cities []string) []model.FacilityLocation {
	citySet := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		citySet[c] = struct{}{}
	}
	idSet := make(map[int]struct{}, len(facilityIDs))
	for _, id := range facilityIDs {
		idSet[id] = struct{}{}
	}

	out := make([]model.FacilityLocation, 0, len(locations))
	for _, l := range locations {
		if len(citySet) > 0 {
			if _, ok := citySet[l.City]; !ok {
				continue
			}
		}
		if len(idSet) > 0 {
			if _, ok := idSet[l.ID]; !ok {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// BuildView 计算地图视图
// 无选中机构 → 全国概览；一个 → 飞到该点；多个 → 适配外包矩形。
// 坐标无效的机构不出现在标记、弹窗与高亮圆中。
func BuildView(opts Options, locations []model.FacilityLocation, facilityIDs []int, cities []string) *dto.MapViewResponse {
	displayed := Filter(locations, facilityIDs, cities)

	markers := make([]model.FacilityLocation, 0, len(displayed))
	for _, l := range displayed {
		if l.HasCoordinates() {
			markers = append(markers, l)
		}
	}

	// 选中 = 用户选择且可定位的机构，保持展示顺序
	var selected []model.FacilityLocation
	if len(facilityIDs) > 0 {
		selected = markers
	}

	view := &dto.MapViewResponse{
		Markers: markers,
		Camera:  camera(opts, selected),
		Popups:  make([]dto.Popup, 0, len(selected)),
		Circles: make([]dto.Circle, 0, len(selected)),
	}
	for i, l := range selected {
		view.Popups = append(view.Popups, dto.Popup{
			FacilityID: l.ID,
			DelayMS:    int64(i) * opts.PopupStagger.Milliseconds(),
		})
		view.Circles = append(view.Circles, dto.Circle{
			FacilityID:   l.ID,
			Center:       dto.LatLng{Lat: l.Latitude, Lng: l.Longitude},
			RadiusMeters: opts.HighlightRadius,
		})
	}
	return view
}

func camera(opts Options, selected []model.FacilityLocation) dto.Camera {
	switch len(selected) {
	case 0:
		return dto.Camera{Mode: dto.CameraOverview, Center: opts.Overview, Zoom: opts.OverviewZoom}
	case 1:
		l := selected[0]
		return dto.Camera{
			Mode:   dto.CameraFly,
			Center: dto.LatLng{Lat: l.Latitude, Lng: l.Longitude},
			Zoom:   opts.FocusZoom,
		}
	}

	b := Bounds(selected)
	span := math.Max(math.Max(b.Max.X()-b.Min.X(), b.Max.Y()-b.Min.Y()), minFitSpan)
	b = b.Pad(span * opts.FitPadding)
	center := b.Center()

	return dto.Camera{
		Mode:   dto.CameraFit,
		Center: dto.LatLng{Lat: center.Lat(), Lng: center.Lon()},
		Bounds: &dto.Bounds{
			SouthWest: dto.LatLng{Lat: b.Min.Lat(), Lng: b.Min.Lon()},
			NorthEast: dto.LatLng{Lat: b.Max.Lat(), Lng: b.Max.Lon()},
		},
	}
}

// Bounds 机构坐标的外包矩形（orb 使用 [lng, lat]）
func Bounds(locations []model.FacilityLocation) orb.Bound {
	mp := make(orb.MultiPoint, 0, len(locations))
	for _, l := range locations {
		mp = append(mp, orb.Point{l.Longitude, l.Latitude})
	}
	return mp.Bound()
}
