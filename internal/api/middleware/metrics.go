package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver HTTP 请求指标（*metrics.Metrics 实现）
type HTTPObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics 记录请求数与耗时；path 使用路由模板，避免 ID 造成高基数
func Metrics(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		obs.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
