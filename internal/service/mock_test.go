package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"medservice-console/config"
	"medservice-console/internal/model"
	"medservice-console/internal/permission"
	"medservice-console/internal/repository"
	"medservice-console/internal/resource"
	"medservice-console/internal/session"
	"medservice-console/pkg/apiclient"
	pkgerrors "medservice-console/pkg/errors"
	"medservice-console/pkg/jwt"
)

// ── Mock Upstream ──

type upstreamCall struct {
	Method  string
	Path    string
	ID      int
	Query   apiclient.Query
	Payload map[string]any
	Token   string
}

type mockUpstream struct {
	mu    sync.Mutex
	calls []upstreamCall

	// 按路径返回的响应体
	bodies map[string]string
	// 按路径返回的错误
	errs map[string]error
	// 删除失败的 ID
	deleteErrs map[int]error
}

func newMockUpstream() *mockUpstream {
	return &mockUpstream{
		bodies:     map[string]string{},
		errs:       map[string]error{},
		deleteErrs: map[int]error{},
	}
}

func (m *mockUpstream) record(c upstreamCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockUpstream) Calls() []upstreamCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]upstreamCall(nil), m.calls...)
}

func (m *mockUpstream) respond(creds apiclient.Credentials, path string) (gjson.Result, error) {
	if creds == nil || creds.BearerToken() == "" {
		return gjson.Result{}, pkgerrors.ErrMissingToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[path]; err != nil {
		return gjson.Result{}, err
	}
	return gjson.Parse(m.bodies[path]), nil
}

func (m *mockUpstream) List(_ context.Context, creds apiclient.Credentials, path string, q apiclient.Query) (gjson.Result, error) {
	m.record(upstreamCall{Method: "GET", Path: path, Query: q, Token: tokenOf(creds)})
	return m.respond(creds, path)
}

func (m *mockUpstream) Get(_ context.Context, creds apiclient.Credentials, path string, _ url.Values) (gjson.Result, error) {
	m.record(upstreamCall{Method: "GET", Path: path, Token: tokenOf(creds)})
	return m.respond(creds, path)
}

func (m *mockUpstream) Create(_ context.Context, creds apiclient.Credentials, path string, payload map[string]any) (gjson.Result, error) {
	m.record(upstreamCall{Method: "POST", Path: path, Payload: payload, Token: tokenOf(creds)})
	return m.respond(creds, path)
}

func (m *mockUpstream) Update(_ context.Context, creds apiclient.Credentials, path string, id int, payload map[string]any) (gjson.Result, error) {
	m.record(upstreamCall{Method: "PUT", Path: path, ID: id, Payload: payload, Token: tokenOf(creds)})
	return m.respond(creds, path)
}

func (m *mockUpstream) Delete(_ context.Context, creds apiclient.Credentials, path string, id int) error {
	m.record(upstreamCall{Method: "DELETE", Path: path, ID: id, Token: tokenOf(creds)})
	m.mu.Lock()
	err := m.deleteErrs[id]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = m.respond(creds, path)
	return err
}

func (m *mockUpstream) count(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func tokenOf(creds apiclient.Credentials) string {
	if creds == nil {
		return ""
	}
	return creds.BearerToken()
}

// ── Mock Cache ──

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mockCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *mockCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// ── Mock Revoker ──

type mockRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMockRevoker() *mockRevoker { return &mockRevoker{revoked: map[string]time.Duration{}} }

func (m *mockRevoker) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *mockRevoker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *mockAuditRepo) Create(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockAuditRepo) CreateBatch(_ context.Context, entries []model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, f repository.AuditFilter, offset, limit int) ([]model.AuditEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.AuditEntry
	for _, e := range m.entries {
		if f.Resource != "" && e.Resource != f.Resource {
			continue
		}
		if f.Outcome != "" && e.Outcome != f.Outcome {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], total, nil
}

func (m *mockAuditRepo) byOutcome(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:       "http://upstream.test",
			ProfilePath:   "/api/me",
			LocationsPath: "/api/health-facilities/locations",
			CitiesPath:    "/api/cities",
		},
		Auth: config.AuthConfig{
			SessionSecret: "test-secret-key-for-unit-testing-2026",
			SessionTTL:    time.Hour,
			BypassRoles:   []string{"super-admin"},
		},
		Listing: config.ListingConfig{
			SearchDebounce:  400 * time.Millisecond,
			BulkConcurrency: 4,
			OptionsCacheTTL: time.Minute,
		},
		Map: config.MapConfig{
			OverviewLat:     -2.5489,
			OverviewLng:     118.0149,
			OverviewZoom:    5,
			FocusZoom:       15,
			FitPadding:      0.05,
			PopupStagger:    150 * time.Millisecond,
			HighlightRadius: 500,
			DataCacheTTL:    time.Minute,
		},
	}
}

type testEnv struct {
	cfg      *config.Config
	upstream *mockUpstream
	cache    *mockCache
	revoker  *mockRevoker
	audit    *mockAuditRepo
	svc      *Service
}

func setupTestService() *testEnv {
	env := &testEnv{
		cfg:      testConfig(),
		upstream: newMockUpstream(),
		cache:    newMockCache(),
		revoker:  newMockRevoker(),
		audit:    &mockAuditRepo{},
	}
	env.svc = NewService(Deps{
		Config:   env.cfg,
		Repo:     &repository.Repository{Audit: env.audit},
		Upstream: env.upstream,
		Cache:    env.cache,
		Revoker:  env.revoker,
		JWT:      jwt.NewManager(&env.cfg.Auth),
		Gate:     permission.NewGate(env.cfg.Auth.BypassRoles),
		Registry: resource.Default(),
		Logger:   zap.NewNop(),
	})
	return env
}

// adminSession 持有 divisions 的全部权限
func adminSession(perms ...string) *session.Session {
	if len(perms) == 0 {
		perms = []string{"view-division", "create-division", "edit-division", "delete-division"}
	}
	return &session.Session{ID: "sess-1", Token: "upstream-token", Name: "Siti", Role: "admin", Permissions: perms}
}

// otherSession 与 adminSession 权限相同、上游令牌不同的另一用户
func otherSession(perms ...string) *session.Session {
	sess := adminSession(perms...)
	sess.ID, sess.Token, sess.Name = "sess-2", "other-user-token", "Budi"
	return sess
}

func divisionsBody(ids ...int) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{"id":%d,"name":"Division %d"}`, id, id))
	}
	return fmt.Sprintf(`{"data":[%s],"meta":{"current_page":1,"last_page":1,"total":%d,"per_page":10}}`, strings.Join(items, ","), len(ids))
}

func permissionGate(env *testEnv) *permission.Gate {
	return permission.NewGate(env.cfg.Auth.BypassRoles)
}

func nopLogger() *zap.Logger { return zap.NewNop() }
