package handler

import (
	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Session  *SessionHandler
	Resource *ResourceHandler
	Live     *LiveHandler
	Map      *MapHandler
	Export   *ExportHandler
	Audit    *AuditHandler
}

// NewHandler 创建 Handler 聚合；obs 为 nil 时不记录实时连接指标
func NewHandler(cfg *config.Config, svc *service.Service, obs LiveObserver, logger *zap.Logger) *Handler {
	return &Handler{
		Session:  NewSessionHandler(svc.Session, &cfg.Auth.Cookie),
		Resource: NewResourceHandler(svc.Resource),
		Live:     NewLiveHandler(svc.Resource, svc.Session, cfg.Server.CORS.AllowOrigins, obs, logger),
		Map:      NewMapHandler(svc.Map),
		Export:   NewExportHandler(svc.Export, svc.Resource),
		Audit:    NewAuditHandler(svc.Audit),
	}
}
