package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/response"
)

// SlotHandler 访客查询时段与预约
type SlotHandler struct {
	slotSvc        service.SlotService
	reservationSvc service.ReservationService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService, reservationSvc service.ReservationService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc, reservationSvc: reservationSvc}
}

// ListSlots 某天的可预约时段
// GET /api/v1/event-types/:id/slots?date=YYYY-MM-DD&timezone=Area/City
func (h *SlotHandler) ListSlots(c *gin.Context) {
	var q dto.SlotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, 23001, err)
		return
	}

	slots, err := h.slotSvc.CandidateSlots(c.Request.Context(), c.Param("id"), &q)
	if err != nil {
		h.handleSlotError(c, err)
		return
	}

	response.OK(c, slots)
}

// Reserve 预约时段；时段已被占用返回 409
// POST /api/v1/event-types/:id/reservations
func (h *SlotHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 24001, err)
		return
	}

	result, err := h.reservationSvc.Reserve(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleReserveError(c, err)
		return
	}

	response.Created(c, result)
}

func (h *SlotHandler) handleSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventTypeNotFound):
		response.NotFound(c, 23101, "事件类型不存在")
	case errors.Is(err, service.ErrNoDefaultSchedule), errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 23102, "主机尚未设置可用时间")
	case errors.Is(err, service.ErrInvalidTimezone):
		response.BadRequest(c, 23103, "时区无效")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 23104, "日期无效")
	default:
		handleKindError(c, 23000, err)
	}
}

func (h *SlotHandler) handleReserveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotUnavailable):
		response.Conflict(c, 24101, "该时段已不可预约")
	case errors.Is(err, service.ErrReservationBusy):
		response.Conflict(c, 24102, "预约请求过多，请稍后重试")
	case errors.Is(err, service.ErrEventTypeNotFound):
		response.NotFound(c, 24103, "事件类型不存在")
	case errors.Is(err, service.ErrNoDefaultSchedule), errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 24104, "主机尚未设置可用时间")
	case errors.Is(err, service.ErrInvalidTimezone):
		response.BadRequest(c, 24105, "时区无效")
	default:
		handleKindError(c, 24000, err)
	}
}
