package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medservice-console/internal/listing"
	"medservice-console/internal/resource"
	"medservice-console/internal/service"
	pkgerrors "medservice-console/pkg/errors"
	"medservice-console/pkg/response"
)

// statusClientClosed 客户端已断开，仅用于日志
const statusClientClosed = 499

// handleServiceError 统一处理资源访问与上游错误
// 各模块的 handleXxxError 先处理自身错误，其余交由此处
func handleServiceError(c *gin.Context, err error) {
	var fe *resource.FormError
	var ve *pkgerrors.ValidationError
	var ae *pkgerrors.APIError
	var ne *pkgerrors.NetworkError

	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, response.CodeForbidden, "Forbidden")
	case errors.Is(err, service.ErrUnknownResource):
		response.NotFound(c, response.CodeUnknownResource, "Unknown resource")
	case errors.Is(err, service.ErrConfirmationRequired):
		response.BadRequest(c, response.CodeBadConfirmation, "Bulk delete must be confirmed")
	case errors.Is(err, listing.ErrEmptySelection):
		response.BadRequest(c, response.CodeBadParams, "No records selected")
	case errors.Is(err, pkgerrors.ErrMissingToken):
		response.Unauthorized(c, response.CodeMissingToken, pkgerrors.UserMessage(err))
	case errors.As(err, &fe):
		response.Unprocessable(c, response.CodeBadParams, fe.Error(), fe.Fields)
	case errors.As(err, &ve):
		response.Unprocessable(c, response.CodeUpstreamValidation, ve.Flatten(), ve.Fields)
	case errors.As(err, &ae):
		status := ae.Status
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		response.Error(c, status, response.CodeUpstream, ae.Message)
	case errors.As(err, &ne):
		response.BadGateway(c, response.CodeNetwork, pkgerrors.MsgNetwork)
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosed)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// noticeFor 把错误转换为实时列表中的提示文本与字段错误
func noticeFor(err error) (string, map[string][]string) {
	var fe *resource.FormError
	var ve *pkgerrors.ValidationError
	switch {
	case errors.Is(err, service.ErrForbidden):
		return "You do not have permission to perform this action", nil
	case errors.Is(err, listing.ErrEmptySelection):
		return "No records selected", nil
	case errors.Is(err, listing.ErrConfirmationRequired):
		return "Bulk delete must be confirmed", nil
	case errors.As(err, &fe):
		return fe.Error(), fe.Fields
	case errors.As(err, &ve):
		return ve.Flatten(), ve.Fields
	default:
		return pkgerrors.UserMessage(err), nil
	}
}
