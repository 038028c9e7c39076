package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/session"
	"medservice-console/pkg/response"
)

// MustGetSession 从请求 context 中安全提取会话。
// 如果 SessionAuth 中间件未正确注入会话，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		response.Unauthorized(c, response.CodeUnauthenticated, "Unauthenticated")
		return nil, false
	}
	return sess, true
}

// MustGetID 解析路径参数 :id 为正整数
func MustGetID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.BadRequest(c, response.CodeBadParams, "Invalid record id")
		return 0, false
	}
	return id, true
}

// queryFilters 按资源声明的筛选键从 query 中读取非空值
func queryFilters(c *gin.Context, keys []string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			filters[k] = v
		}
	}
	return filters
}
