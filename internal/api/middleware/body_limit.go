package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medservice-console/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes <= 0 时不限制
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBadParams, "Request body too large")
				return
			}
		}
	}
}
