package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medservice-console/internal/session"
)

const requestIDKey = "request_id"

// requestIDMaxLen 限制外部传入的 Request-ID 最大长度，防止日志注入
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件
// 从请求头 X-Request-ID 读取，若不存在则自动生成 UUID；
// 同时写入请求 context，审计记录按此关联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)
		c.Request = c.Request.WithContext(session.WithRequestID(c.Request.Context(), rid))

		c.Next()
	}
}
