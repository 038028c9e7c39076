package listing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"medservice-console/internal/model"
	pkgerrors "medservice-console/pkg/errors"
)

// ── 测试桩 ──

type stubFetcher struct {
	mu    sync.Mutex
	calls []Query
	fn    func(q Query) (*Page, error)
}

func (s *stubFetcher) Fetch(_ context.Context, q Query) (*Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	fn := s.fn
	s.mu.Unlock()
	if fn == nil {
		return pageOf(q.Page, 5, 1, 2, 3), nil
	}
	return fn(q)
}

func (s *stubFetcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubFetcher) last() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func pageOf(current, last int, ids ...int) *Page {
	records := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, &model.Division{Named: model.Named{ID: id, Name: "d"}})
	}
	return &Page{
		Records: records,
		Meta:    model.Meta{CurrentPage: current, LastPage: last, Total: last * 10, PerPage: 10},
	}
}

func loaded(t *testing.T, f Fetcher, opts ...Option) *Controller {
	t.Helper()
	ctl := NewController(f, opts...)
	ctl.Load()
	ctl.Wait()
	t.Cleanup(ctl.Close)
	return ctl
}

// ────────────────────── 防抖 ──────────────────────

func TestSetSearch_Debounce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	f := &stubFetcher{}
	ctl := NewController(f, WithClock(fc))
	defer ctl.Close()

	ctl.SetSearch("x")
	ctl.SetSearch("xr")
	ctl.SetSearch("xray")

	fc.Advance(399 * time.Millisecond)
	if n := f.count(); n != 0 {
		t.Fatalf("防抖间隔内不应发起请求，实际 %d 次", n)
	}

	fc.Advance(time.Millisecond)
	ctl.Wait()

	if n := f.count(); n != 1 {
		t.Fatalf("期望恰好 1 次请求，实际 %d 次", n)
	}
	if q := f.last(); q.Search != "xray" || q.Page != 1 {
		t.Errorf("期望以最终输入 xray 请求第 1 页，实际 %+v", q)
	}
}

func TestSetSearch_ResetsPage(t *testing.T) {
	fc := clockwork.NewFakeClock()
	f := &stubFetcher{}
	ctl := loaded(t, f, WithClock(fc))

	ctl.SetPage(3)
	ctl.Wait()
	ctl.SetSearch("ecg")
	fc.Advance(DefaultDebounce)
	ctl.Wait()

	if q := f.last(); q.Page != 1 || q.Search != "ecg" {
		t.Errorf("搜索后应回到第 1 页，实际 %+v", q)
	}
}

func TestClose_StopsPendingSearch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	f := &stubFetcher{}
	ctl := NewController(f, WithClock(fc))

	ctl.SetSearch("abc")
	ctl.Close()
	fc.Advance(time.Second)
	ctl.Wait()

	if n := f.count(); n != 0 {
		t.Errorf("关闭后不应发起请求，实际 %d 次", n)
	}
}

func TestRefresh_AppliesPendingSearch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	f := &stubFetcher{}
	ctl := loaded(t, f, WithClock(fc))

	ctl.SetPage(2)
	ctl.Wait()
	ctl.SetSearch("ecg")
	ctl.Refresh()
	ctl.Wait()

	if q := f.last(); q.Search != "ecg" || q.Page != 1 {
		t.Errorf("刷新应立即使用待生效的搜索并回到第 1 页，实际 %+v", q)
	}
	n := f.count()

	fc.Advance(time.Second)
	ctl.Wait()
	if got := f.count(); got != n {
		t.Errorf("刷新后防抖计时器应已取消，多出 %d 次请求", got-n)
	}
	if s := ctl.Snapshot(); s.Search != "ecg" {
		t.Errorf("搜索词应保持 ecg，实际 %q", s.Search)
	}
}

// ────────────────────── 分页与筛选 ──────────────────────

func TestSetPage_Clamped(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)

	ctl.SetPage(10)
	ctl.Wait()
	if q := f.last(); q.Page != 5 {
		t.Errorf("页码应被限制为 last_page=5，实际 %d", q.Page)
	}

	ctl.SetPage(0)
	ctl.Wait()
	if q := f.last(); q.Page != 1 {
		t.Errorf("页码应不小于 1，实际 %d", q.Page)
	}
}

func TestSetFilter_ImmediateAndResetsPage(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	ctl.SetPage(2)
	ctl.Wait()

	ctl.SetFilter("status", "active")
	ctl.Wait()
	q := f.last()
	if q.Page != 1 || q.Filters["status"] != "active" {
		t.Errorf("筛选后应立即请求第 1 页，实际 %+v", q)
	}

	ctl.SetFilter("status", "")
	ctl.Wait()
	if _, ok := f.last().Filters["status"]; ok {
		t.Error("空值应移除筛选项")
	}
}

// ────────────────────── 过期响应 ──────────────────────

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	f := &stubFetcher{fn: func(q Query) (*Page, error) {
		if q.Page == 2 {
			<-release // 模拟慢响应，且忽略 ctx 取消
			return pageOf(2, 5, 20, 21), nil
		}
		return pageOf(q.Page, 5, q.Page*10), nil
	}}
	ctl := loaded(t, f)

	ctl.SetPage(2)
	ctl.SetPage(3)
	close(release)
	ctl.Wait()

	s := ctl.Snapshot()
	if s.Page != 3 || s.Meta.CurrentPage != 3 {
		t.Fatalf("最新请求为第 3 页，实际状态 page=%d meta=%+v", s.Page, s.Meta)
	}
	if len(s.Records) != 1 || s.Records[0].RecordID() != 30 {
		t.Errorf("过期响应不应覆盖新数据，实际 %v", s.Records)
	}
	if s.Loading {
		t.Error("最新请求完成后 loading 应为 false")
	}
}

func TestSupersededRequestCanceled(t *testing.T) {
	canceled := make(chan struct{})
	var once sync.Once
	f := FetcherFunc(func(ctx context.Context, q Query) (*Page, error) {
		if q.Page == 2 {
			<-ctx.Done()
			once.Do(func() { close(canceled) })
			return nil, ctx.Err()
		}
		return pageOf(q.Page, 5, 1), nil
	})
	ctl := loaded(t, f)

	ctl.SetPage(2)
	ctl.SetPage(3)
	ctl.Wait()

	select {
	case <-canceled:
	default:
		t.Fatal("被取代的请求应被取消")
	}
	if s := ctl.Snapshot(); s.Error != "" || s.Page != 3 {
		t.Errorf("取消不应产生错误状态，实际 %+v", s)
	}
}

// ────────────────────── 错误与选择 ──────────────────────

func TestFetchError_ResetsCollection(t *testing.T) {
	fail := false
	var mu sync.Mutex
	f := &stubFetcher{fn: func(q Query) (*Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, &pkgerrors.NetworkError{Err: context.DeadlineExceeded}
		}
		return pageOf(1, 2, 1, 2), nil
	}}
	ctl := loaded(t, f)

	mu.Lock()
	fail = true
	mu.Unlock()
	ctl.Refresh()
	ctl.Wait()

	s := ctl.Snapshot()
	if len(s.Records) != 0 || s.Meta != (model.Meta{}) {
		t.Errorf("失败后数据应清空，实际 %v %+v", s.Records, s.Meta)
	}
	if s.Error != pkgerrors.MsgNetwork {
		t.Errorf("期望网络错误提示，实际 %q", s.Error)
	}
}

func TestSelection_ClearedOnRefetch(t *testing.T) {
	ctl := loaded(t, &stubFetcher{})

	if !ctl.Toggle(2) {
		t.Fatal("Toggle 应返回选中")
	}
	if ctl.Toggle(99) {
		t.Error("不在当前页的记录不能被选中")
	}
	ctl.SelectAll()
	if got := ctl.Selected(); len(got) != 3 {
		t.Fatalf("期望全选 3 条，实际 %v", got)
	}

	ctl.Refresh()
	ctl.Wait()
	if got := ctl.Selected(); len(got) != 0 {
		t.Errorf("重新拉取后选择应被清空，实际 %v", got)
	}
}

func TestNotifyCalled(t *testing.T) {
	var mu sync.Mutex
	n := 0
	ctl := loaded(t, &stubFetcher{}, WithNotify(func() {
		mu.Lock()
		n++
		mu.Unlock()
	}))
	ctl.Toggle(1)

	mu.Lock()
	defer mu.Unlock()
	// Load 发起 + 完成 + Toggle
	if n < 3 {
		t.Errorf("期望至少 3 次通知，实际 %d", n)
	}
}
