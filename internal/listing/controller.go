// Package listing 实现资源列表页的状态机：分页、防抖搜索、筛选、
// 行选择，以及“过期响应不覆盖新状态”的请求序号机制。
package listing

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"medservice-console/internal/model"
	pkgerrors "medservice-console/pkg/errors"
)

// DefaultDebounce 搜索输入防抖间隔
const DefaultDebounce = 400 * time.Millisecond

// Query 一次列表请求的参数
type Query struct {
	Page    int
	Search  string
	Filters map[string]string
}

// Page 一次列表请求的结果
type Page struct {
	Records []model.Record
	Meta    model.Meta
}

// Fetcher 拉取一页数据
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Page, error)
}

// FetcherFunc 函数适配
type FetcherFunc func(ctx context.Context, q Query) (*Page, error)

func (f FetcherFunc) Fetch(ctx context.Context, q Query) (*Page, error) { return f(ctx, q) }

// State 控制器状态快照
type State struct {
	Seq      uint64            `json:"seq"`
	Page     int               `json:"page"`
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
	Records  []model.Record    `json:"records"`
	Meta     model.Meta        `json:"meta"`
	Loading  bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
	Selected []int             `json:"selected"`
}

// Controller 列表控制器，所有方法并发安全
type Controller struct {
	fetcher  Fetcher
	clock    clockwork.Clock
	debounce time.Duration
	logger   *zap.Logger
	notify   func()

	mu       sync.Mutex
	wg       sync.WaitGroup
	page     int
	search   string
	filters  map[string]string
	records  []model.Record
	meta     model.Meta
	loading  bool
	errMsg   string
	selected map[int]struct{}

	seq       uint64
	cancel    context.CancelFunc
	timer     clockwork.Timer
	searchGen uint64
	pending   string
	closed    bool
}

// Option 控制器可选项
type Option func(*Controller)

// WithClock 注入时钟（测试使用 clockwork.NewFakeClock）
func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithDebounce 设置搜索防抖间隔
func WithDebounce(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.debounce = d
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithNotify 状态变化回调；在锁外调用，回调内可以调用 Snapshot
func WithNotify(fn func()) Option {
	return func(ctl *Controller) { ctl.notify = fn }
}

// NewController 创建控制器，不会自动发起请求，调用 Load 开始
func NewController(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  f,
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		page:     1,
		filters:  map[string]string{},
		selected: map[int]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ────────────────────── 输入 ──────────────────────

// Load 以当前参数发起首次请求
func (c *Controller) Load() { c.Refresh() }

// Refresh 以当前 page/search/filters 重新拉取；尚在防抖中的搜索输入立即生效
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.timer != nil {
		c.stopTimerLocked()
		c.searchGen++
		c.search = c.pending
		c.page = 1
	}
	c.startFetchLocked()
	c.mu.Unlock()
	c.emit()
}

// SetSearch 防抖：间隔内的连续输入只在最后一次静默后发起一次请求
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimerLocked()
	c.searchGen++
	gen := c.searchGen
	c.pending = term

	c.wg.Add(1)
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.mu.Lock()
		// 已被更新的输入取代
		if c.closed || gen != c.searchGen {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.search = term
		c.page = 1
		c.startFetchLocked()
		c.mu.Unlock()
		c.emit()
	})
}

// SetPage 立即拉取；页码限制在 [1, last_page]
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	if page < 1 {
		page = 1
	}
	if c.meta.LastPage > 0 && page > c.meta.LastPage {
		page = c.meta.LastPage
	}
	c.page = page
	c.startFetchLocked()
	c.mu.Unlock()
	c.emit()
}

// SetFilter 立即拉取并回到第一页；空值表示移除该筛选项
func (c *Controller) SetFilter(key, value string) {
	c.mu.Lock()
	if value == "" {
		delete(c.filters, key)
	} else {
		c.filters[key] = value
	}
	c.page = 1
	c.startFetchLocked()
	c.mu.Unlock()
	c.emit()
}

// ────────────────────── 选择 ──────────────────────

// Toggle 切换当前页中某条记录的选中状态，返回切换后是否选中
func (c *Controller) Toggle(id int) bool {
	c.mu.Lock()
	if !c.onPageLocked(id) {
		c.mu.Unlock()
		return false
	}
	_, on := c.selected[id]
	if on {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	c.mu.Unlock()
	c.emit()
	return !on
}

// SelectAll 选中当前页全部记录
func (c *Controller) SelectAll() {
	c.mu.Lock()
	for _, r := range c.records {
		c.selected[r.RecordID()] = struct{}{}
	}
	c.mu.Unlock()
	c.emit()
}

// ClearSelection 清空选择
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	clear(c.selected)
	c.mu.Unlock()
	c.emit()
}

// Selected 已选 ID，升序
func (c *Controller) Selected() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedLocked()
}

// Snapshot 当前状态的拷贝
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Seq:      c.seq,
		Page:     c.page,
		Search:   c.search,
		Filters:  maps.Clone(c.filters),
		Records:  slices.Clone(c.records),
		Meta:     c.meta,
		Loading:  c.loading,
		Error:    c.errMsg,
		Selected: c.selectedLocked(),
	}
}

// Wait 等待已调度的防抖与在途请求全部结束（测试与关闭时使用）
func (c *Controller) Wait() { c.wg.Wait() }

// Close 停止防抖计时并取消在途请求
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

// ────────────────────── 内部 ──────────────────────

// startFetchLocked 序号加一并取消上一个在途请求；调用方持有锁
func (c *Controller) startFetchLocked() {
	if c.closed {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.loading = true

	q := Query{Page: c.page, Search: c.search, Filters: maps.Clone(c.filters)}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		page, err := c.fetcher.Fetch(ctx, q)
		c.complete(seq, q, page, err)
	}()
}

func (c *Controller) complete(seq uint64, q Query, page *Page, err error) {
	c.mu.Lock()
	if seq != c.seq || c.closed {
		c.mu.Unlock()
		c.logger.Debug("丢弃过期的列表响应", zap.Uint64("seq", seq), zap.Int("page", q.Page))
		return
	}

	c.loading = false
	c.cancel = nil
	clear(c.selected)
	if err != nil {
		c.records = nil
		c.meta = model.Meta{}
		c.errMsg = pkgerrors.UserMessage(err)
		c.logger.Info("列表加载失败", zap.Int("page", q.Page), zap.String("search", q.Search), zap.Error(err))
	} else {
		c.errMsg = ""
		if page == nil {
			page = &Page{}
		}
		c.records = page.Records
		c.meta = page.Meta
	}
	c.mu.Unlock()
	c.emit()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
}

func (c *Controller) onPageLocked(id int) bool {
	for _, r := range c.records {
		if r.RecordID() == id {
			return true
		}
	}
	return false
}

func (c *Controller) selectedLocked() []int {
	ids := make([]int, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Controller) emit() {
	if c.notify != nil {
		c.notify()
	}
}
