package service

import (
	"context"
	"errors"
	"testing"

	"medservice-console/internal/dto"
	"medservice-console/internal/session"
	pkgerrors "medservice-console/pkg/errors"
)

const locationsBody = `{"data":[
	{"id":1,"name":"RS Jakarta","city":"Jakarta","latitude":-6.2,"longitude":106.8,"facility_type":{"name":"Hospital"},
	 "medical_devices":[{"id":10,"name":"X-Ray"}]},
	{"id":2,"name":"Puskesmas Bandung","city":"Bandung","latitude":"-6.9","longitude":"107.6"},
	{"id":3,"name":"Klinik Tanpa Koordinat","city":"Bandung","latitude":null,"longitude":null}
]}`

func mapSession() *session.Session {
	return adminSession("view-health-facility")
}

// ── Data 测试 ──

func TestMapService_Data_Success(t *testing.T) {
	env := setupTestService()
	env.upstream.bodies[env.cfg.Upstream.LocationsPath] = locationsBody
	env.upstream.bodies[env.cfg.Upstream.CitiesPath] = `{"data":["Jakarta",{"name":"Bandung"},"Jakarta"]}`

	data, err := env.svc.Map.Data(context.Background(), mapSession())
	if err != nil {
		t.Fatalf("Data 应成功: %v", err)
	}
	if len(data.Locations) != 3 {
		t.Errorf("机构数 = %d, 期望 3", len(data.Locations))
	}
	if len(data.Cities) != 2 {
		t.Errorf("城市应去重: %v", data.Cities)
	}
	if !env.cache.has(mapDataCacheKey(mapSession())) {
		t.Error("两个请求均成功时应写入缓存")
	}
}

func TestMapService_Data_OneUpstreamFails(t *testing.T) {
	env := setupTestService()
	env.upstream.bodies[env.cfg.Upstream.LocationsPath] = locationsBody
	env.upstream.errs[env.cfg.Upstream.CitiesPath] = &pkgerrors.NetworkError{Err: errors.New("dial tcp: refused")}

	data, err := env.svc.Map.Data(context.Background(), mapSession())
	if err != nil {
		t.Fatalf("单个上游失败不应返回错误: %v", err)
	}
	if len(data.Locations) != 3 {
		t.Errorf("机构列表应正常返回, got %d", len(data.Locations))
	}
	if data.Cities == nil || len(data.Cities) != 0 {
		t.Errorf("失败的列表应为空数组: %v", data.Cities)
	}
	if env.cache.has(mapDataCacheKey(mapSession())) {
		t.Error("部分失败时不应写入缓存")
	}
}

func TestMapService_Data_BothFail(t *testing.T) {
	env := setupTestService()
	env.upstream.errs[env.cfg.Upstream.LocationsPath] = pkgerrors.NewAPIError(500, "")
	env.upstream.errs[env.cfg.Upstream.CitiesPath] = pkgerrors.NewAPIError(500, "")

	data, err := env.svc.Map.Data(context.Background(), mapSession())
	if err != nil {
		t.Fatalf("上游失败不应阻塞地图页: %v", err)
	}
	if data.Locations == nil || len(data.Locations) != 0 || data.Cities == nil || len(data.Cities) != 0 {
		t.Errorf("两个列表都应为空数组: %+v", data)
	}
	if env.cache.has(mapDataCacheKey(mapSession())) {
		t.Error("失败结果不应写入缓存")
	}
}

func TestMapService_Data_ScopedPerCaller(t *testing.T) {
	env := setupTestService()
	env.upstream.bodies[env.cfg.Upstream.LocationsPath] = locationsBody
	env.upstream.bodies[env.cfg.Upstream.CitiesPath] = `{"data":["Jakarta"]}`
	ctx := context.Background()

	if _, err := env.svc.Map.Data(ctx, mapSession()); err != nil {
		t.Fatalf("Data 应成功: %v", err)
	}
	other := otherSession("view-health-facility")
	if _, err := env.svc.Map.Data(ctx, other); err != nil {
		t.Fatalf("Data 应成功: %v", err)
	}

	seen := map[string]int{}
	for _, c := range env.upstream.Calls() {
		seen[c.Token]++
	}
	if seen["upstream-token"] != 2 || seen["other-user-token"] != 2 {
		t.Errorf("每个用户都应以自己的令牌访问上游: %v", seen)
	}

	// 同一用户第二次命中自己的缓存
	if _, err := env.svc.Map.Data(ctx, other); err != nil {
		t.Fatalf("Data 应成功: %v", err)
	}
	if n := len(env.upstream.Calls()); n != 4 {
		t.Errorf("第二次应命中缓存, 上游调用 %d 次", n)
	}
}

func TestMapService_Data_Forbidden(t *testing.T) {
	env := setupTestService()

	if _, err := env.svc.Map.Data(context.Background(), adminSession()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("期望 ErrForbidden, got %v", err)
	}
}

// ── View / GeoJSON 测试 ──

func TestMapService_View(t *testing.T) {
	env := setupTestService()
	env.upstream.bodies[env.cfg.Upstream.LocationsPath] = locationsBody
	env.upstream.bodies[env.cfg.Upstream.CitiesPath] = `{"data":[]}`
	ctx := context.Background()

	view, err := env.svc.Map.View(ctx, mapSession(), &dto.MapViewRequest{})
	if err != nil {
		t.Fatalf("View 应成功: %v", err)
	}
	if view.Camera.Mode != dto.CameraOverview {
		t.Errorf("未选择机构时应为全国视角, got %s", view.Camera.Mode)
	}
	if len(view.Markers) != 2 {
		t.Errorf("无效坐标应排除在标记之外, got %d", len(view.Markers))
	}

	view, err = env.svc.Map.View(ctx, mapSession(), &dto.MapViewRequest{FacilityIDs: []int{1}})
	if err != nil {
		t.Fatalf("View 应成功: %v", err)
	}
	if view.Camera.Mode != dto.CameraFly || view.Camera.Zoom != env.cfg.Map.FocusZoom {
		t.Errorf("选择单个机构时应飞到固定缩放级别: %+v", view.Camera)
	}
	if len(view.Circles) != 1 || view.Circles[0].RadiusMeters != env.cfg.Map.HighlightRadius {
		t.Errorf("应为选中机构绘制高亮圈: %+v", view.Circles)
	}
}

func TestMapService_GeoJSON_FilterByCity(t *testing.T) {
	env := setupTestService()
	env.upstream.bodies[env.cfg.Upstream.LocationsPath] = locationsBody
	env.upstream.bodies[env.cfg.Upstream.CitiesPath] = `{"data":[]}`

	fc, err := env.svc.Map.GeoJSON(context.Background(), mapSession(), []string{"Bandung"})
	if err != nil {
		t.Fatalf("GeoJSON 应成功: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("Bandung 中坐标有效的机构只有 1 个, got %d", len(fc.Features))
	}
}
