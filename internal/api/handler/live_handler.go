package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medservice-console/internal/bulk"
	"medservice-console/internal/listing"
	"medservice-console/internal/resource"
	"medservice-console/internal/service"
	"medservice-console/internal/session"
)

// ═══════════════════════════════════════════════════════════
// 实时列表：每个连接持有一个列表控制器，
// 客户端发送输入事件，服务端推送状态快照与操作提示
// ═══════════════════════════════════════════════════════════

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMaxMessage = 64 << 10
)

// 客户端消息类型
const (
	liveSearch         = "search"
	livePage           = "page"
	liveFilter         = "filter"
	liveRefresh        = "refresh"
	liveSelect         = "select"
	liveSelectAll      = "select_all"
	liveClearSelection = "clear_selection"
	liveSave           = "save"
	liveDelete         = "delete"
	liveBulkDelete     = "bulk_delete"
)

// SessionChecker 长连接期间复查会话（service.SessionService 实现）
type SessionChecker interface {
	Check(ctx context.Context, sess *session.Session) error
}

// LiveObserver 实时连接数指标（*metrics.Metrics 实现）
type LiveObserver interface {
	LiveSessionOpened()
	LiveSessionClosed()
}

// liveClientMessage 客户端输入
type liveClientMessage struct {
	Type    string          `json:"type"`
	Search  string          `json:"search,omitempty"`
	Page    int             `json:"page,omitempty"`
	Key     string          `json:"key,omitempty"`
	Value   string          `json:"value,omitempty"`
	ID      int             `json:"id,omitempty"`
	Form    json.RawMessage `json:"form,omitempty"`
	Confirm bool            `json:"confirm,omitempty"`
}

// liveNotice 操作结果提示
type liveNotice struct {
	Action  string              `json:"action"`
	OK      bool                `json:"ok"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Result  *bulk.Result        `json:"result,omitempty"`
}

// liveServerMessage 服务端推送
type liveServerMessage struct {
	Type   string         `json:"type"` // snapshot | notice
	State  *listing.State `json:"state,omitempty"`
	Notice *liveNotice    `json:"notice,omitempty"`
}

// LiveHandler 实时列表 WebSocket 处理器
type LiveHandler struct {
	resourceSvc service.ResourceService
	sessions    SessionChecker
	upgrader    websocket.Upgrader
	obs         LiveObserver
	logger      *zap.Logger
}

// NewLiveHandler 创建 LiveHandler；只接受 CORS 白名单内的来源
func NewLiveHandler(resourceSvc service.ResourceService, sessions SessionChecker, allowOrigins []string, obs LiveObserver, logger *zap.Logger) *LiveHandler {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &LiveHandler{
		resourceSvc: resourceSvc,
		sessions:    sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || sameHost(origin, r.Host)
			},
		},
		obs:    obs,
		logger: logger,
	}
}

func sameHost(origin, host string) bool {
	_, rest, ok := strings.Cut(origin, "://")
	return ok && rest == host
}

// Connect 升级为 WebSocket 并开始推送
// GET /api/v1/resources/:resource/live
func (h *LiveHandler) Connect(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	key := c.Param("resource")
	desc, err := h.resourceSvc.Lookup(key)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	ls := &liveSession{
		desc:    desc,
		sess:    sess,
		checker: h.sessions,
		dirty:   make(chan struct{}, 1),
		notes:   make(chan liveNotice, 16),
		done:    make(chan struct{}),
		gone:    make(chan struct{}),
		logger:  h.logger.With(zap.String("resource", key), zap.String("session_id", sess.ID)),
	}

	ws, err := h.resourceSvc.Workspace(sess, key, listing.WithNotify(ls.markDirty))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ws.List.Close()
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}
	ls.conn = conn
	ls.ws = ws

	if h.obs != nil {
		h.obs.LiveSessionOpened()
		defer h.obs.LiveSessionClosed()
	}
	ls.logger.Info("实时列表已连接")

	// 连接生命周期独立于 HTTP 请求
	ctx, cancel := context.WithCancel(session.WithSession(context.WithoutCancel(c.Request.Context()), sess))
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ls.writePump(ctx)
	}()

	ws.List.Load()
	ls.readPump(ctx)

	close(ls.done)
	ws.List.Close()
	wg.Wait()
	ls.logger.Info("实时列表已断开")
}

// ────────────────────── 连接会话 ──────────────────────

type liveSession struct {
	desc    *resource.Descriptor
	sess    *session.Session
	checker SessionChecker
	conn    *websocket.Conn
	ws      *listing.Workspace
	dirty   chan struct{}
	notes   chan liveNotice
	done    chan struct{} // 读协程退出
	gone    chan struct{} // 写协程退出
	logger  *zap.Logger
}

// markDirty 状态变化时只做标记，写协程取最新快照，中间状态可合并
func (s *liveSession) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// alive 复查会话；过期或吊销后连接不再可用
func (s *liveSession) alive(ctx context.Context) bool {
	if s.checker == nil {
		return true
	}
	if err := s.checker.Check(ctx, s.sess); err != nil {
		s.logger.Info("会话已失效，关闭实时列表", zap.Error(err))
		return false
	}
	return true
}

// closeExpired 以策略违规关闭连接，客户端据此回到登录页
func (s *liveSession) closeExpired() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"), time.Now().Add(liveWriteWait))
}

// needsSession 会发起上游请求的消息；本地选择操作不复查
func needsSession(msgType string) bool {
	switch msgType {
	case liveSelect, liveSelectAll, liveClearSelection:
		return false
	}
	return true
}

func (s *liveSession) notify(n liveNotice) {
	select {
	case s.notes <- n:
	case <-s.gone:
	}
}

// readPump 读取客户端消息并分发
func (s *liveSession) readPump(ctx context.Context) {
	defer s.conn.Close()

	s.conn.SetReadLimit(liveMaxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("实时列表连接异常关闭", zap.Error(err))
			}
			return
		}

		var msg liveClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// 忽略格式错误的消息
			continue
		}
		if needsSession(msg.Type) && !s.alive(ctx) {
			s.closeExpired()
			return
		}
		s.dispatch(ctx, msg)
	}
}

func (s *liveSession) dispatch(ctx context.Context, msg liveClientMessage) {
	ctl := s.ws.List
	switch msg.Type {
	case liveSearch:
		ctl.SetSearch(msg.Search)
	case livePage:
		ctl.SetPage(msg.Page)
	case liveFilter:
		// 未声明的筛选键直接忽略
		if slices.Contains(s.desc.Filters, msg.Key) {
			ctl.SetFilter(msg.Key, strings.TrimSpace(msg.Value))
		}
	case liveRefresh:
		ctl.Refresh()
	case liveSelect:
		ctl.Toggle(msg.ID)
	case liveSelectAll:
		ctl.SelectAll()
	case liveClearSelection:
		ctl.ClearSelection()
	case liveSave:
		s.save(ctx, msg.Form)
	case liveDelete:
		msgText, err := s.ws.Delete(ctx, msg.ID)
		s.notify(noticeFrom(liveDelete, msgText, nil, err))
	case liveBulkDelete:
		res, err := s.ws.BulkDelete(ctx, msg.Confirm)
		summary := ""
		if res != nil {
			summary = res.Summary()
		}
		n := noticeFrom(liveBulkDelete, summary, res, err)
		if res != nil && res.Failed > 0 {
			n.OK = false
		}
		s.notify(n)
	}
}

func (s *liveSession) save(ctx context.Context, raw json.RawMessage) {
	form := s.desc.NewForm()
	if len(raw) == 0 || json.Unmarshal(raw, form) != nil {
		s.notify(liveNotice{Action: liveSave, Message: "Invalid form data"})
		return
	}
	msgText, err := s.ws.Save(ctx, form)
	s.notify(noticeFrom(liveSave, msgText, nil, err))
}

func noticeFrom(action, message string, res *bulk.Result, err error) liveNotice {
	if err != nil {
		text, fields := noticeFor(err)
		return liveNotice{Action: action, Message: text, Fields: fields}
	}
	return liveNotice{Action: action, OK: true, Message: message, Result: res}
}

// writePump 推送快照、提示与心跳；数据帧只在此协程写入，关闭帧经 WriteControl 可并发发送
// 心跳时顺带复查会话，空闲连接也会在会话失效后关闭
func (s *liveSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.gone)
	}()

	for {
		select {
		case <-s.dirty:
			state := s.ws.List.Snapshot()
			if err := s.write(liveServerMessage{Type: "snapshot", State: &state}); err != nil {
				return
			}
		case n := <-s.notes:
			if err := s.write(liveServerMessage{Type: "notice", Notice: &n}); err != nil {
				return
			}
		case <-ticker.C:
			if !s.alive(ctx) {
				s.closeExpired()
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(liveWriteWait))
			return
		}
	}
}

func (s *liveSession) write(msg liveServerMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("实时列表写入失败", zap.Error(err))
		return err
	}
	return nil
}
