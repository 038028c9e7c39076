// Package apiclient 是上游 REST API 的类型化客户端。
//
// 每个请求都附带 Authorization: Bearer <token>；令牌缺失时直接返回
// ErrMissingToken，不发起网络请求。非 2xx 响应被解析为字段校验错误
// 或一般错误，传输失败包装为 NetworkError。默认不自动重试。
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"medservice-console/config"
	pkgerrors "medservice-console/pkg/errors"
)

// Credentials 提供访问令牌的会话对象
type Credentials interface {
	BearerToken() string
}

// TokenCredentials 直接使用字符串令牌（建立会话时校验上游令牌）
type TokenCredentials string

func (t TokenCredentials) BearerToken() string { return string(t) }

// Observer 上游请求观测钩子（指标）
type Observer interface {
	ObserveUpstream(method, path, outcome string, duration time.Duration)
}

// Client 上游 API 客户端
type Client struct {
	http     *resty.Client
	logger   *zap.Logger
	observer Observer
}

// Option 客户端可选项
type Option func(*Client)

// WithObserver 注入观测钩子
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New 创建上游客户端
func New(cfg *config.UpstreamConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	c := &Client{http: httpClient, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── 读取 ──

// List GET <path>?page=..&search=..&<filters>
func (c *Client) List(ctx context.Context, creds Credentials, path string, q Query) (gjson.Result, error) {
	return c.do(ctx, creds, http.MethodGet, path, q.Values(), nil)
}

// Get 通用 GET（个人信息、城市列表等）
func (c *Client) Get(ctx context.Context, creds Credentials, path string, params url.Values) (gjson.Result, error) {
	return c.do(ctx, creds, http.MethodGet, path, params, nil)
}

// ── 写入 ──

// Create POST <path>
func (c *Client) Create(ctx context.Context, creds Credentials, path string, payload map[string]any) (gjson.Result, error) {
	return c.do(ctx, creds, http.MethodPost, path, nil, payload)
}

// Update PUT <path>/<id>
func (c *Client) Update(ctx context.Context, creds Credentials, path string, id int, payload map[string]any) (gjson.Result, error) {
	return c.do(ctx, creds, http.MethodPut, itemPath(path, id), nil, payload)
}

// Delete DELETE <path>/<id>
func (c *Client) Delete(ctx context.Context, creds Credentials, path string, id int) error {
	_, err := c.do(ctx, creds, http.MethodDelete, itemPath(path, id), nil, nil)
	return err
}

func itemPath(path string, id int) string {
	return strings.TrimRight(path, "/") + "/" + strconv.Itoa(id)
}

// do 执行请求并按错误分类返回
func (c *Client) do(ctx context.Context, creds Credentials, method, path string, params url.Values, body any) (gjson.Result, error) {
	token := ""
	if creds != nil {
		token = strings.TrimSpace(creds.BearerToken())
	}
	if token == "" {
		return gjson.Result{}, pkgerrors.ErrMissingToken
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.observe(method, path, "canceled", elapsed)
			return gjson.Result{}, err
		}
		c.observe(method, path, "network_error", elapsed)
		c.logger.Warn("上游请求失败",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return gjson.Result{}, &pkgerrors.NetworkError{Err: err}
	}

	if !resp.IsSuccess() {
		c.observe(method, path, strconv.Itoa(resp.StatusCode()), elapsed)
		upstreamErr := decodeError(resp.StatusCode(), resp.Body())
		c.logger.Info("上游返回错误",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.String("error", upstreamErr.Error()),
		)
		return gjson.Result{}, upstreamErr
	}

	c.observe(method, path, "ok", elapsed)

	raw := resp.Body()
	if len(raw) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, pkgerrors.NewAPIError(resp.StatusCode(), fmt.Sprintf("invalid JSON from %s", path))
	}
	return gjson.ParseBytes(raw), nil
}

func (c *Client) observe(method, path, outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, path, outcome, d)
	}
}

// decodeError 优先解析 errors 字段映射，其次 message
func decodeError(status int, raw []byte) error {
	body := gjson.ParseBytes(raw)

	if errs := body.Get("errors"); errs.IsObject() {
		fields := make(map[string][]string)
		errs.ForEach(func(key, value gjson.Result) bool {
			field := key.String()
			switch {
			case value.IsArray():
				for _, m := range value.Array() {
					if s := m.String(); s != "" {
						fields[field] = append(fields[field], s)
					}
				}
			case value.String() != "":
				fields[field] = append(fields[field], value.String())
			}
			return true
		})
		if len(fields) > 0 {
			return &pkgerrors.ValidationError{Status: status, Fields: fields}
		}
	}

	return pkgerrors.NewAPIError(status, body.Get("message").String())
}
