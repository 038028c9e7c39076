// Package errors 定义与上游 API 交互时的错误分类：
// 缺少凭证、字段校验失败、一般 HTTP 错误、网络/传输失败。
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrMissingToken 会话中没有访问令牌，请求不会发往上游
var ErrMissingToken = errors.New("unauthorized: no access token")

// MsgNetwork 网络错误或上游不可用时展示给用户的通用提示
const MsgNetwork = "Network error or server unavailable"

// ValidationError 上游返回 { errors: { field: [messages] } }
type ValidationError struct {
	Status int
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Flatten()
}

// Flatten 将所有字段的错误信息按字段名排序后拼接为一条消息
func (e *ValidationError) Flatten() string {
	return FlattenFields(e.Fields)
}

// FlattenFields 按字段名排序，拼接全部消息
func FlattenFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, m := range fields[k] {
			if m = strings.TrimSpace(m); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	return strings.Join(msgs, ", ")
}

// APIError 上游非 2xx 且不含字段错误时的一般错误
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// NewAPIError message 为空时回退为状态码文本
func NewAPIError(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "Request failed"
	}
	return &APIError{Status: status, Message: message}
}

// NetworkError 请求未得到任何 HTTP 响应
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error or server unavailable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage 将错误转换为可直接展示的消息
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	var ae *APIError
	var ne *NetworkError
	switch {
	case errors.Is(err, ErrMissingToken):
		return "Unauthorized: please sign in again"
	case errors.As(err, &ve):
		return ve.Flatten()
	case errors.As(err, &ae):
		return ae.Message
	case errors.As(err, &ne):
		return MsgNetwork
	default:
		return "An unexpected error occurred"
	}
}
