package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/listing"
	"medservice-console/internal/permission"
	"medservice-console/internal/repository"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
	"medservice-console/pkg/apiclient"
	"medservice-console/pkg/jwt"
)

// ── 通用业务错误 ──

var (
	ErrForbidden            = errors.New("forbidden")
	ErrUnknownResource      = errors.New("unknown resource")
	ErrConfirmationRequired = listing.ErrConfirmationRequired
	ErrNotExportable        = errors.New("resource cannot be exported")
)

// Upstream 上游 API 客户端（*apiclient.Client 实现）
type Upstream interface {
	List(ctx context.Context, creds apiclient.Credentials, path string, q apiclient.Query) (gjson.Result, error)
	Get(ctx context.Context, creds apiclient.Credentials, path string, params url.Values) (gjson.Result, error)
	Create(ctx context.Context, creds apiclient.Credentials, path string, payload map[string]any) (gjson.Result, error)
	Update(ctx context.Context, creds apiclient.Credentials, path string, id int, payload map[string]any) (gjson.Result, error)
	Delete(ctx context.Context, creds apiclient.Credentials, path string, id int) error
}

// Cache JSON 缓存（*redis.Client 实现）；为 nil 时不缓存
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// cacheScope 调用者维度的缓存键后缀，取上游令牌摘要，令牌本身不写入 Redis
func cacheScope(sess *session.Session) string {
	sum := sha256.Sum256([]byte(sess.Token))
	return hex.EncodeToString(sum[:8])
}

// Revoker 会话吊销名单（*redis.Client 实现）；为 nil 时不支持吊销
type Revoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Recorder 业务指标（*metrics.Metrics 实现，nil 安全）
type Recorder interface {
	ObserveBulkDelete(resource string, succeeded, failed int)
	ObserveDropped(resource string, n int)
}

// Deps 构造 Service 所需的外部依赖
type Deps struct {
	Config   *config.Config
	Repo     *repository.Repository // 为 nil 时审计日志不可用
	Upstream Upstream
	Cache    Cache
	Revoker  Revoker
	JWT      *jwt.Manager
	Gate     *permission.Gate
	Registry *resource.Registry
	Metrics  Recorder
	Logger   *zap.Logger
}

// Service 所有 Service 的聚合入口
type Service struct {
	Session  SessionService
	Resource ResourceService
	Map      MapService
	Export   ExportService
	Audit    AuditService
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = noopRecorder{}
	}

	var auditRepo repository.AuditRepository
	if d.Repo != nil {
		auditRepo = d.Repo.Audit
	}
	audit := NewAuditService(auditRepo, d.Logger)
	res := NewResourceService(d.Registry, d.Upstream, d.Cache, d.Gate, audit, d.Metrics, &d.Config.Listing, d.Logger)

	return &Service{
		Session:  NewSessionService(d.Config, d.Upstream, d.JWT, d.Revoker, d.Gate, d.Registry, d.Logger),
		Resource: res,
		Map:      NewMapService(&d.Config.Map, &d.Config.Upstream, d.Upstream, d.Cache, d.Gate, d.Logger),
		Export:   NewExportService(res, d.Registry, d.Logger),
		Audit:    audit,
	}
}

type noopRecorder struct{}

func (noopRecorder) ObserveBulkDelete(string, int, int) {}
func (noopRecorder) ObserveDropped(string, int)         {}
