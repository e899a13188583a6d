package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/response"
)

// CalendarHandler 外部日历连接
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// List GET /api/v1/me/calendars
func (h *CalendarHandler) List(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.calendarSvc.List(c.Request.Context(), hostID)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Connect POST /api/v1/me/calendars
func (h *CalendarHandler) Connect(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConnectCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 27001, err)
		return
	}

	cal, err := h.calendarSvc.Connect(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.Created(c, cal)
}

// Disconnect DELETE /api/v1/me/calendars/:id
func (h *CalendarHandler) Disconnect(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.calendarSvc.Disconnect(c.Request.Context(), hostID, c.Param("id")); err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *CalendarHandler) handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarNotFound):
		response.NotFound(c, 27101, "日历不存在")
	case errors.Is(err, service.ErrCalendarSpecError):
		response.BadRequest(c, 27102, "日历连接参数不完整")
	default:
		handleKindError(c, 27000, err)
	}
}
