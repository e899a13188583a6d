package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportBookings 导出预约
// GET /api/v1/me/export/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ExportHandler) ExportBookings(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ExportBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 26001, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportBookings(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoBookings):
		response.NotFound(c, 26101, "该时间范围内没有预约")
	case errors.Is(err, service.ErrExportRangeTooLong):
		response.BadRequest(c, 26102, "导出范围不能超过 366 天")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 26103, "日期范围无效")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleKindError(c, 26000, err)
	}
}
