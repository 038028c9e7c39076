package service

import (
	"context"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medservice-console/config"
	"medservice-console/internal/dto"
	"medservice-console/internal/geomap"
	"medservice-console/internal/model"
	"medservice-console/internal/permission"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
)

const mapDataCachePrefix = "medconsole:map:data:"

// mapDataCacheKey 上游可能按用户裁剪机构范围，缓存按调用者隔离
func mapDataCacheKey(sess *session.Session) string {
	return mapDataCachePrefix + cacheScope(sess)
}

// mapPermission 地图页沿用医疗机构的查看权限
const mapPermission = "view-health-facility"

// MapService 地图业务接口
type MapService interface {
	// Data 机构坐标与城市列表；任一上游失败时该列表为空并记录日志
	Data(ctx context.Context, sess *session.Session) (*dto.MapDataResponse, error)
	View(ctx context.Context, sess *session.Session, req *dto.MapViewRequest) (*dto.MapViewResponse, error)
	GeoJSON(ctx context.Context, sess *session.Session, cities []string) (*geojson.FeatureCollection, error)
}

type mapService struct {
	cfg      *config.MapConfig
	paths    *config.UpstreamConfig
	upstream Upstream
	cache    Cache
	gate     *permission.Gate
	logger   *zap.Logger
}

// NewMapService 创建 MapService 实例
func NewMapService(cfg *config.MapConfig, paths *config.UpstreamConfig, upstream Upstream, cache Cache, gate *permission.Gate, logger *zap.Logger) MapService {
	return &mapService{cfg: cfg, paths: paths, upstream: upstream, cache: cache, gate: gate, logger: logger}
}

// ────────────────────── Data ──────────────────────

func (s *mapService) Data(ctx context.Context, sess *session.Session) (*dto.MapDataResponse, error) {
	if !s.gate.Allows(sess, mapPermission) {
		return nil, ErrForbidden
	}

	cacheKey := mapDataCacheKey(sess)
	if s.cache != nil {
		var cached dto.MapDataResponse
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("读取地图缓存失败", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	resp := &dto.MapDataResponse{}
	var locErr, cityErr error

	// 两个请求互不影响，一个失败不取消另一个
	var g errgroup.Group
	g.Go(func() error {
		body, err := s.upstream.Get(ctx, sess, s.paths.LocationsPath, nil)
		if err != nil {
			locErr = err
			s.logger.Warn("获取机构坐标失败", zap.String("path", s.paths.LocationsPath), zap.Error(err))
			return nil
		}
		locations, dropped := resource.NormalizeLocations(body)
		if dropped > 0 {
			s.logger.Warn("机构坐标记录格式错误，已丢弃", zap.Int("dropped", dropped))
		}
		resp.Locations = locations
		return nil
	})
	g.Go(func() error {
		body, err := s.upstream.Get(ctx, sess, s.paths.CitiesPath, nil)
		if err != nil {
			cityErr = err
			s.logger.Warn("获取城市列表失败", zap.String("path", s.paths.CitiesPath), zap.Error(err))
			return nil
		}
		resp.Cities = resource.NormalizeCities(body)
		return nil
	})
	_ = g.Wait()

	if locErr != nil && cityErr != nil {
		s.logger.Error("地图数据全部获取失败，返回空列表")
	}
	if resp.Locations == nil {
		resp.Locations = []model.FacilityLocation{}
	}
	if resp.Cities == nil {
		resp.Cities = []string{}
	}

	if s.cache != nil && locErr == nil && cityErr == nil {
		if err := s.cache.SetJSON(ctx, cacheKey, resp, s.cfg.DataCacheTTL); err != nil {
			s.logger.Warn("写入地图缓存失败", zap.Error(err))
		}
	}
	return resp, nil
}

// ────────────────────── View ──────────────────────

func (s *mapService) View(ctx context.Context, sess *session.Session, req *dto.MapViewRequest) (*dto.MapViewResponse, error) {
	data, err := s.Data(ctx, sess)
	if err != nil {
		return nil, err
	}
	return geomap.BuildView(geomap.OptionsFromConfig(s.cfg), data.Locations, req.FacilityIDs, req.Cities), nil
}

// ────────────────────── GeoJSON ──────────────────────

func (s *mapService) GeoJSON(ctx context.Context, sess *session.Session, cities []string) (*geojson.FeatureCollection, error) {
	data, err := s.Data(ctx, sess)
	if err != nil {
		return nil, err
	}
	return geomap.FeatureCollection(geomap.Filter(data.Locations, nil, cities)), nil
}
