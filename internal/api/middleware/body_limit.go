package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/pkg/response"
)

// BodyLimit 限制请求体大小。
// 声明长度超限时直接返回 413；未声明长度的请求在读取超限时由绑定失败处理。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
