package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/dto"
	"medservice-console/internal/service"
	"medservice-console/pkg/response"
)

// MapHandler 地图模块 HTTP 处理器
type MapHandler struct {
	mapSvc service.MapService
}

// NewMapHandler 创建 MapHandler
func NewMapHandler(mapSvc service.MapService) *MapHandler {
	return &MapHandler{mapSvc: mapSvc}
}

// Data 机构坐标与城市列表
// GET /api/v1/map/data
func (h *MapHandler) Data(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	data, err := h.mapSvc.Data(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, data)
}

// View 计算标记、镜头、弹窗与高亮圈
// POST /api/v1/map/view
func (h *MapHandler) View(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.MapViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}

	view, err := h.mapSvc.View(c.Request.Context(), sess, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, view)
}

// GeoJSON 机构点位 FeatureCollection
// GET /api/v1/map/geojson?city=A&city=B
func (h *MapHandler) GeoJSON(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	fc, err := h.mapSvc.GeoJSON(c.Request.Context(), sess, c.QueryArray("city"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
