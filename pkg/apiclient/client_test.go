package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"medservice-console/config"
	pkgerrors "medservice-console/pkg/errors"
)

type testObserver struct {
	outcomes []string
}

func (o *testObserver) ObserveUpstream(_, _, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(&config.UpstreamConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop())
	return c, srv
}

func TestQuery_Values_SkipsEmpty(t *testing.T) {
	q := Query{
		Page:    3,
		Search:  "  ",
		Filters: map[string]string{"division_id": "2", "status": "", "": "x"},
	}
	v := q.Values()
	if v.Get("page") != "3" {
		t.Errorf("期望 page=3，实际=%s", v.Get("page"))
	}
	if v.Has("search") || v.Has("status") {
		t.Errorf("空参数不应出现在查询串中: %s", v.Encode())
	}
	if v.Get("division_id") != "2" {
		t.Errorf("期望 division_id=2，实际=%s", v.Get("division_id"))
	}
}

func TestQuery_Values_All(t *testing.T) {
	v := Query{Page: 2, All: true}.Values()
	if v.Get("per_page") != AllPages || v.Get("page_all") != AllPages {
		t.Errorf("全量请求应带 per_page=All 与 page_all=All: %s", v.Encode())
	}
	if v.Has("page") {
		t.Error("全量请求不应带 page")
	}
}

func TestClient_List_SendsBearerAndQuery(t *testing.T) {
	var gotAuth, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"data":[{"id":1,"name":"ICU"}],"meta":{"current_page":2,"last_page":5,"total":41,"per_page":10}}`)
	})

	body, err := c.List(context.Background(), TokenCredentials("tok-1"), "/api/divisions", Query{Page: 2, Search: "icu"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("期望 Bearer 令牌，实际=%q", gotAuth)
	}
	if gotQuery != "page=2&search=icu" {
		t.Errorf("查询串不符: %s", gotQuery)
	}
	if body.Get("meta.last_page").Int() != 5 {
		t.Error("应返回原始响应体")
	}
}

func TestClient_MissingToken_NoNetworkCall(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.List(context.Background(), TokenCredentials(""), "/api/divisions", Query{Page: 1})
	if !errors.Is(err, pkgerrors.ErrMissingToken) {
		t.Fatalf("期望 ErrMissingToken，实际: %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("缺少令牌时不应发起网络请求")
	}
}

func TestClient_ValidationError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"The given data was invalid.","errors":{"slug":["The slug has already been taken."],"name":["The name field is required."]}}`)
	})

	_, err := c.Create(context.Background(), TokenCredentials("tok"), "/api/divisions", map[string]any{"name": ""})
	var ve *pkgerrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	if ve.Flatten() != "The name field is required., The slug has already been taken." {
		t.Errorf("拼接结果不符: %q", ve.Flatten())
	}
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"Division still has employees"}`)
	})

	err := c.Delete(context.Background(), TokenCredentials("tok"), "/api/divisions", 9)
	var ae *pkgerrors.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("期望 APIError，实际: %v", err)
	}
	if ae.Status != http.StatusConflict || ae.Message != "Division still has employees" {
		t.Errorf("APIError 内容不符: %+v", ae)
	}
}

func TestClient_UpdateUsesPutOnItemPath(t *testing.T) {
	var method, path string
	var payload map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = io.WriteString(w, `{"data":{"id":7,"name":"Radiology"}}`)
	})

	body, err := c.Update(context.Background(), TokenCredentials("tok"), "/api/divisions/", 7, map[string]any{"name": "Radiology"})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if method != http.MethodPut || path != "/api/divisions/7" {
		t.Errorf("期望 PUT /api/divisions/7，实际 %s %s", method, path)
	}
	if payload["name"] != "Radiology" {
		t.Errorf("请求体不符: %v", payload)
	}
	if body.Get("data.id").Int() != 7 {
		t.Error("应返回响应体")
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	obs := &testObserver{}
	c := New(&config.UpstreamConfig{BaseURL: base, Timeout: time.Second}, zap.NewNop(), WithObserver(obs))

	_, err := c.List(context.Background(), TokenCredentials("tok"), "/api/divisions", Query{Page: 1})
	var ne *pkgerrors.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("期望 NetworkError，实际: %v", err)
	}
	if pkgerrors.UserMessage(err) != pkgerrors.MsgNetwork {
		t.Errorf("用户提示不符: %s", pkgerrors.UserMessage(err))
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "network_error" {
		t.Errorf("应记录 network_error 观测，实际=%v", obs.outcomes)
	}
}
