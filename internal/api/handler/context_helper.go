package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/api/middleware"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
	"github.com/dix105/calendly-clone/pkg/response"
)

// MustGetUserID 从 Gin 上下文中提取主机 ID。
// JWT 中间件未注入时写入 401 并返回 false，调用方应直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindFailed 请求绑定失败；请求体超限返回 413，其余返回 400 并附带校验详情
func bindFailed(c *gin.Context, code int, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", err.Error())
}

// handleKindError 未单独映射的错误按类别兜底
func handleKindError(c *gin.Context, code int, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrInput):
		response.BadRequest(c, code, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, code, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, code, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, code, err.Error())
	case errors.Is(err, pkgerrors.ErrUpstreamUnavailable):
		response.BadGateway(c, code, "外部服务不可用")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
