package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/bulk"
	"medservice-console/internal/dto"
	"medservice-console/internal/listing"
	"medservice-console/internal/model"
	"medservice-console/internal/permission"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
	"medservice-console/pkg/apiclient"
	pkgerrors "medservice-console/pkg/errors"
)

const optionsCachePrefix = "medconsole:options:"

// ResourceService 资源列表与写操作
// 每个方法都显式接收会话，先过权限闸门再访问上游
type ResourceService interface {
	Lookup(key string) (*resource.Descriptor, error)
	List(ctx context.Context, sess *session.Session, key string, q listing.Query, perPage int) (*dto.ListResponse, error)
	Options(ctx context.Context, sess *session.Session, key string) ([]dto.Option, error)
	All(ctx context.Context, sess *session.Session, key, search string, filters map[string]string) ([]model.Record, error)
	Save(ctx context.Context, sess *session.Session, key string, form resource.Form) (*dto.SaveResult, error)
	Delete(ctx context.Context, sess *session.Session, key string, id int) (string, error)
	PreviewBulkDelete(ctx context.Context, sess *session.Session, key string, ids []int) (*dto.BulkPreviewResponse, error)
	BulkDelete(ctx context.Context, sess *session.Session, key string, ids []int, confirm bool) (*bulk.Result, error)
	// Workspace 为实时列表连接创建绑定会话的列表控制器与写操作
	Workspace(sess *session.Session, key string, opts ...listing.Option) (*listing.Workspace, error)
}

type resourceService struct {
	registry *resource.Registry
	upstream Upstream
	cache    Cache
	gate     *permission.Gate
	audit    AuditService
	metrics  Recorder
	cfg      *config.ListingConfig
	logger   *zap.Logger
}

// NewResourceService 创建 ResourceService 实例
func NewResourceService(
	registry *resource.Registry,
	upstream Upstream,
	cache Cache,
	gate *permission.Gate,
	audit AuditService,
	metrics Recorder,
	cfg *config.ListingConfig,
	logger *zap.Logger,
) ResourceService {
	return &resourceService{
		registry: registry,
		upstream: upstream,
		cache:    cache,
		gate:     gate,
		audit:    audit,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *resourceService) Lookup(key string) (*resource.Descriptor, error) {
	desc, ok := s.registry.Lookup(key)
	if !ok {
		return nil, ErrUnknownResource
	}
	return desc, nil
}

// authorize 查找资源并检查操作权限
func (s *resourceService) authorize(sess *session.Session, key string, action resource.Action) (*resource.Descriptor, error) {
	desc, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !s.gate.Allows(sess, desc.Permission(action)) {
		return nil, ErrForbidden
	}
	return desc, nil
}

// ────────────────────── List ──────────────────────

func (s *resourceService) List(ctx context.Context, sess *session.Session, key string, q listing.Query, perPage int) (*dto.ListResponse, error) {
	desc, err := s.authorize(sess, key, resource.ActionView)
	if err != nil {
		return nil, err
	}

	body, err := s.upstream.List(ctx, sess, desc.Path, apiclient.Query{
		Page:    q.Page,
		PerPage: perPage,
		Search:  q.Search,
		Filters: desc.AllowedFilters(q.Filters),
	})
	if err != nil {
		return nil, err
	}

	records, dropped := resource.NormalizeList(body, desc.Normalize)
	s.reportDropped(desc.Key, dropped)

	return &dto.ListResponse{
		List:       records,
		Pagination: resource.NormalizeMeta(body),
		Dropped:    dropped,
	}, nil
}

// All 不分页拉取全部匹配记录（导出使用）
func (s *resourceService) All(ctx context.Context, sess *session.Session, key, search string, filters map[string]string) ([]model.Record, error) {
	desc, err := s.authorize(sess, key, resource.ActionView)
	if err != nil {
		return nil, err
	}
	return s.fetchAll(ctx, sess, desc, search, filters)
}

func (s *resourceService) fetchAll(ctx context.Context, sess *session.Session, desc *resource.Descriptor, search string, filters map[string]string) ([]model.Record, error) {
	body, err := s.upstream.List(ctx, sess, desc.Path, apiclient.Query{
		All:     true,
		Search:  search,
		Filters: desc.AllowedFilters(filters),
	})
	if err != nil {
		return nil, err
	}
	records, dropped := resource.NormalizeList(body, desc.Normalize)
	s.reportDropped(desc.Key, dropped)
	return records, nil
}

func (s *resourceService) reportDropped(key string, dropped int) {
	if dropped == 0 {
		return
	}
	s.metrics.ObserveDropped(key, dropped)
	s.logger.Warn("上游返回的记录格式错误，已丢弃", zap.String("resource", key), zap.Int("dropped", dropped))
}

// ────────────────────── Options ──────────────────────

func (s *resourceService) Options(ctx context.Context, sess *session.Session, key string) ([]dto.Option, error) {
	desc, err := s.authorize(sess, key, resource.ActionView)
	if err != nil {
		return nil, err
	}

	cacheKey := optionsCacheKey(desc.Key, sess)
	if s.cache != nil {
		var cached []dto.Option
		hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("读取选项缓存失败", zap.String("resource", desc.Key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	records, err := s.fetchAll(ctx, sess, desc, "", nil)
	if err != nil {
		return nil, err
	}

	options := make([]dto.Option, 0, len(records))
	for _, r := range records {
		options = append(options, dto.Option{ID: r.RecordID(), Name: r.Label()})
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, options, s.cfg.OptionsCacheTTL); err != nil {
			s.logger.Warn("写入选项缓存失败", zap.String("resource", desc.Key), zap.Error(err))
		}
	}
	return options, nil
}

// optionsCacheKey 选项缓存按资源与调用者隔离
func optionsCacheKey(key string, sess *session.Session) string {
	return optionsCachePrefix + key + ":" + cacheScope(sess)
}

// invalidateOptions 清除该资源下所有调用者的选项缓存
func (s *resourceService) invalidateOptions(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(context.WithoutCancel(ctx), optionsCachePrefix+key+":"); err != nil {
		s.logger.Warn("清除选项缓存失败", zap.String("resource", key), zap.Error(err))
	}
}

// ────────────────────── Save ──────────────────────

func (s *resourceService) Save(ctx context.Context, sess *session.Session, key string, form resource.Form) (*dto.SaveResult, error) {
	creating := form.RecordID() <= 0
	action := resource.ActionEdit
	if creating {
		action = resource.ActionCreate
	}
	desc, err := s.authorize(sess, key, action)
	if err != nil {
		return nil, err
	}

	// 本地校验失败不发起上游请求
	if err := resource.Validate(form); err != nil {
		return nil, err
	}

	auditAction := model.AuditActionUpdate
	verb := "updated"
	if creating {
		auditAction = model.AuditActionCreate
		verb = "created"
	}

	payload := form.Payload()
	var result *dto.SaveResult
	if creating {
		body, err := s.upstream.Create(ctx, sess, desc.Path, payload)
		if err != nil {
			s.recordMutation(ctx, sess, desc.Key, auditAction, 0, err)
			return nil, err
		}
		result = &dto.SaveResult{Created: true, Message: body.Get("message").String()}
		if rec, ok := resource.NormalizeOne(body, desc.Normalize); ok {
			result.Record = rec
		}
	} else {
		body, err := s.upstream.Update(ctx, sess, desc.Path, form.RecordID(), payload)
		if err != nil {
			s.recordMutation(ctx, sess, desc.Key, auditAction, form.RecordID(), err)
			return nil, err
		}
		result = &dto.SaveResult{Message: body.Get("message").String()}
		if rec, ok := resource.NormalizeOne(body, desc.Normalize); ok {
			result.Record = rec
		}
	}

	if result.Message == "" {
		result.Message = fmt.Sprintf("%s %s successfully", desc.Title, verb)
	}

	recordID := form.RecordID()
	if recordID <= 0 && result.Record != nil {
		recordID = result.Record.RecordID()
	}
	s.recordMutation(ctx, sess, desc.Key, auditAction, recordID, nil)
	s.invalidateOptions(ctx, desc.Key)

	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *resourceService) Delete(ctx context.Context, sess *session.Session, key string, id int) (string, error) {
	desc, err := s.authorize(sess, key, resource.ActionDelete)
	if err != nil {
		return "", err
	}

	err = s.upstream.Delete(ctx, sess, desc.Path, id)
	s.recordMutation(ctx, sess, desc.Key, model.AuditActionDelete, id, err)
	if err != nil {
		return "", err
	}

	s.invalidateOptions(ctx, desc.Key)
	return fmt.Sprintf("%s deleted successfully", desc.Title), nil
}

// ────────────────────── Bulk delete ──────────────────────

func (s *resourceService) PreviewBulkDelete(ctx context.Context, sess *session.Session, key string, ids []int) (*dto.BulkPreviewResponse, error) {
	desc, err := s.authorize(sess, key, resource.ActionDelete)
	if err != nil {
		return nil, err
	}

	unique := bulk.Dedupe(ids)
	if len(unique) == 0 {
		return nil, listing.ErrEmptySelection
	}

	records, err := s.fetchAll(ctx, sess, desc, "", nil)
	if err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(records))
	for _, r := range records {
		labels[r.RecordID()] = r.Label()
	}

	items := make([]dto.BulkPreviewItem, 0, len(unique))
	for _, id := range unique {
		label, found := labels[id]
		if !found {
			label = fmt.Sprintf("#%d", id)
		}
		items = append(items, dto.BulkPreviewItem{ID: id, Label: label, Found: found})
	}

	return &dto.BulkPreviewResponse{
		Message: fmt.Sprintf("Delete %d records? This action cannot be undone.", len(items)),
		Items:   items,
	}, nil
}

func (s *resourceService) BulkDelete(ctx context.Context, sess *session.Session, key string, ids []int, confirm bool) (*bulk.Result, error) {
	desc, err := s.authorize(sess, key, resource.ActionDelete)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	if len(bulk.Dedupe(ids)) == 0 {
		return nil, listing.ErrEmptySelection
	}

	res := bulk.Run(ctx, ids, s.cfg.BulkConcurrency, func(ctx context.Context, id int) error {
		return s.upstream.Delete(ctx, sess, desc.Path, id)
	})

	entries := make([]model.AuditEntry, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		entries = append(entries, auditEntry(desc.Key, model.AuditActionBulkDelete, o.ID, o.Err))
	}
	s.audit.RecordBatch(ctx, sess, entries)
	s.metrics.ObserveBulkDelete(desc.Key, res.Succeeded, res.Failed)

	if res.Succeeded > 0 {
		s.invalidateOptions(ctx, desc.Key)
	}
	if res.Failed > 0 {
		s.logger.Warn("批量删除部分失败",
			zap.String("resource", desc.Key),
			zap.Int("succeeded", res.Succeeded),
			zap.Ints("failed_ids", res.FailedIDs()),
		)
	}
	return res, nil
}

// ────────────────────── Workspace ──────────────────────

func (s *resourceService) Workspace(sess *session.Session, key string, opts ...listing.Option) (*listing.Workspace, error) {
	if _, err := s.authorize(sess, key, resource.ActionView); err != nil {
		return nil, err
	}

	fetch := listing.FetcherFunc(func(ctx context.Context, q listing.Query) (*listing.Page, error) {
		resp, err := s.List(ctx, sess, key, q, 0)
		if err != nil {
			return nil, err
		}
		return &listing.Page{Records: resp.List, Meta: resp.Pagination}, nil
	})

	base := []listing.Option{
		listing.WithDebounce(s.cfg.SearchDebounce),
		listing.WithLogger(s.logger.With(zap.String("resource", key))),
	}
	ctl := listing.NewController(fetch, append(base, opts...)...)
	return listing.NewWorkspace(ctl, &boundMutator{svc: s, sess: sess, key: key}), nil
}

// boundMutator 绑定会话与资源的写操作
type boundMutator struct {
	svc  *resourceService
	sess *session.Session
	key  string
}

func (m *boundMutator) Save(ctx context.Context, form resource.Form) (string, error) {
	res, err := m.svc.Save(ctx, m.sess, m.key, form)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (m *boundMutator) Delete(ctx context.Context, id int) (string, error) {
	return m.svc.Delete(ctx, m.sess, m.key, id)
}

func (m *boundMutator) BulkDelete(ctx context.Context, ids []int, confirm bool) (*bulk.Result, error) {
	return m.svc.BulkDelete(ctx, m.sess, m.key, ids, confirm)
}

// ── 审计辅助 ──

func (s *resourceService) recordMutation(ctx context.Context, sess *session.Session, key, action string, id int, err error) {
	s.audit.Record(ctx, sess, auditEntry(key, action, id, err))
}

func auditEntry(key, action string, id int, err error) model.AuditEntry {
	entry := model.AuditEntry{
		Resource: key,
		Action:   action,
		RecordID: id,
		Outcome:  model.AuditOutcomeSuccess,
	}
	if err != nil {
		entry.Outcome = model.AuditOutcomeFailure
		entry.Message = pkgerrors.UserMessage(err)
	}
	return entry
}
