package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medservice-console/config"
	"medservice-console/internal/dto"
	"medservice-console/internal/service"
	pkgerrors "medservice-console/pkg/errors"
	"medservice-console/pkg/response"
)

// SessionHandler 会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
	cookie     *config.CookieConfig
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService, cookie *config.CookieConfig) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, cookie: cookie}
}

// Open 使用上游访问令牌登录
// POST /api/v1/session
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeBadParams, "Invalid parameters")
		return
	}

	result, signed, err := h.sessionSvc.Open(c.Request.Context(), req.Token)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.setCookie(c, signed, int(time.Until(result.ExpiresAt).Seconds()))
	response.OKMessage(c, "Signed in", result)
}

// Current 当前会话信息与可见导航
// GET /api/v1/session
func (h *SessionHandler) Current(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}
	response.OK(c, h.sessionSvc.Describe(sess))
}

// Close 登出：吊销会话并清除 Cookie
// DELETE /api/v1/session
func (h *SessionHandler) Close(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Close(c.Request.Context(), sess); err != nil {
		// 吊销失败仍清除 Cookie
		_ = c.Error(err)
	}

	h.setCookie(c, "", -1)
	response.OKMessage(c, "Signed out", nil)
}

func (h *SessionHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(sameSiteMode(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func sameSiteMode(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// handleSessionError 统一处理会话模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUpstreamToken):
		response.Unauthorized(c, response.CodeUnauthenticated, "The access token was rejected")
	case errors.Is(err, pkgerrors.ErrMissingToken):
		response.BadRequest(c, response.CodeMissingToken, "Access token is required")
	default:
		handleServiceError(c, err)
	}
}
