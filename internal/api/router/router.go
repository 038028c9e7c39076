package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/api/handler"
	"medservice-console/internal/api/middleware"
	"medservice-console/internal/metrics"
	"medservice-console/internal/permission"
	"medservice-console/internal/resource"
)

// 登录接口限流：每个 IP 每分钟 10 次
const (
	sessionRateLimit  = 10
	sessionRateWindow = time.Minute
)

// Deps 路由所需的中间件依赖
type Deps struct {
	Sessions middleware.SessionResolver
	Gate     *permission.Gate
	Registry *resource.Registry
	Limiter  middleware.RateLimiter // 为 nil 时不限流
	Metrics  *metrics.Metrics       // 为 nil 时不暴露 /metrics
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, d Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 会话模块（无需认证）
		v1.POST("/session", middleware.RateLimit(d.Limiter, sessionRateLimit, sessionRateWindow), h.Session.Open)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(d.Sessions, cfg.Auth.Cookie.Name))
		{
			authorized.GET("/session", h.Session.Current)
			authorized.DELETE("/session", h.Session.Close)

			// 资源模块：十类资源共用一组路由
			perm := func(a resource.Action) gin.HandlerFunc {
				return middleware.RequireResourcePermission(d.Gate, d.Registry, a)
			}
			resources := authorized.Group("/resources/:resource")
			{
				resources.GET("", perm(resource.ActionView), h.Resource.List)
				resources.GET("/options", perm(resource.ActionView), h.Resource.Options)
				resources.GET("/live", perm(resource.ActionView), h.Live.Connect)
				resources.POST("", perm(resource.ActionCreate), h.Resource.Create)
				resources.PUT("/:id", perm(resource.ActionEdit), h.Resource.Update)
				resources.DELETE("/:id", perm(resource.ActionDelete), h.Resource.Delete)
				resources.POST("/bulk-delete/preview", perm(resource.ActionDelete), h.Resource.PreviewBulkDelete)
				resources.POST("/bulk-delete", perm(resource.ActionDelete), h.Resource.BulkDelete)
			}

			// 地图模块（机构查看权限在 Service 层判断）
			geo := authorized.Group("/map")
			{
				geo.GET("/data", h.Map.Data)
				geo.POST("/view", h.Map.View)
				geo.GET("/geojson", h.Map.GeoJSON)
			}

			// 导出模块
			authorized.GET("/export/:resource", perm(resource.ActionView), h.Export.Export)

			// 审计日志
			authorized.GET("/audit", middleware.RequirePermission(d.Gate, permission.ViewAudit), h.Audit.List)
		}
	}

	return r
}
