package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/response"
)

// BookingHandler 预约管理；主机接口需认证，访客接口凭取消令牌
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// List 主机预约列表
// GET /api/v1/me/bookings?status=&from=&to=&page=&page_size=
func (h *BookingHandler) List(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.BookingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 25001, err)
		return
	}

	list, total, err := h.bookingSvc.List(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 预约详情
// GET /api/v1/me/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Get(c.Request.Context(), hostID, c.Param("id"))
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Confirm 确认待付款预约（付款完成回调）
// POST /api/v1/me/bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Confirm(c.Request.Context(), hostID, c.Param("id"))
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Cancel 主机取消预约
// POST /api/v1/me/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, 25001, err)
			return
		}
	}

	booking, err := h.bookingSvc.CancelByHost(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// GuestCancel 访客凭取消令牌取消
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) GuestCancel(c *gin.Context) {
	var req dto.GuestCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 25001, err)
		return
	}

	booking, err := h.bookingSvc.CancelByGuest(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Invite 下载日历邀请
// GET /api/v1/bookings/:id/invite.ics?token=
func (h *BookingHandler) Invite(c *gin.Context) {
	var q dto.InviteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 25001, err)
		return
	}

	raw, err := h.bookingSvc.InviteICS(c.Request.Context(), c.Param("id"), q.Token)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invite.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8; method=REQUEST", raw)
}

// handleBookingError 统一处理预约模块业务错误
func (h *BookingHandler) handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 25101, "预约不存在")
	case errors.Is(err, service.ErrBookingState):
		response.Conflict(c, 25102, "当前预约状态不允许此操作")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 25103, "日期范围无效")
	default:
		handleKindError(c, 25000, err)
	}
}
