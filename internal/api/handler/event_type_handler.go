package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
	"github.com/dix105/calendly-clone/pkg/response"
)

// EventTypeHandler 事件类型 HTTP 处理器
type EventTypeHandler struct {
	eventTypeSvc service.EventTypeService
}

// NewEventTypeHandler 创建 EventTypeHandler
func NewEventTypeHandler(eventTypeSvc service.EventTypeService) *EventTypeHandler {
	return &EventTypeHandler{eventTypeSvc: eventTypeSvc}
}

// List 主机的全部事件类型
// GET /api/v1/me/event-types
func (h *EventTypeHandler) List(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.eventTypeSvc.List(c.Request.Context(), hostID)
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create 创建事件类型
// POST /api/v1/me/event-types
func (h *EventTypeHandler) Create(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 22001, err)
		return
	}

	et, err := h.eventTypeSvc.Create(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.Created(c, et)
}

// Get 事件类型详情
// GET /api/v1/me/event-types/:id
func (h *EventTypeHandler) Get(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	et, err := h.eventTypeSvc.Get(c.Request.Context(), hostID, c.Param("id"))
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, et)
}

// Update 更新事件类型
// PUT /api/v1/me/event-types/:id
func (h *EventTypeHandler) Update(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateEventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 22001, err)
		return
	}

	et, err := h.eventTypeSvc.Update(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, et)
}

// Delete 删除事件类型
// DELETE /api/v1/me/event-types/:id
func (h *EventTypeHandler) Delete(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.eventTypeSvc.Delete(c.Request.Context(), hostID, c.Param("id")); err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListPublic 主机公开页面的事件类型
// GET /api/v1/hosts/:username/event-types
func (h *EventTypeHandler) ListPublic(c *gin.Context) {
	list, err := h.eventTypeSvc.ListByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetPublic 按链接标识查询事件类型
// GET /api/v1/hosts/:username/event-types/:slug
func (h *EventTypeHandler) GetPublic(c *gin.Context) {
	et, err := h.eventTypeSvc.GetBySlug(c.Request.Context(), c.Param("username"), c.Param("slug"))
	if err != nil {
		h.handleEventTypeError(c, err)
		return
	}

	response.OK(c, et)
}

// handleEventTypeError 统一处理事件类型模块业务错误
func (h *EventTypeHandler) handleEventTypeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventTypeNotFound):
		response.NotFound(c, 22101, "事件类型不存在")
	case errors.Is(err, service.ErrSlugTaken):
		response.Conflict(c, 22102, "链接标识已被使用")
	case errors.Is(err, service.ErrScheduleNotFound):
		response.BadRequest(c, 22103, "引用的可用时间方案不存在")
	case errors.Is(err, service.ErrHostNotFound):
		response.NotFound(c, 22104, "主机不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 22105, "事件类型已被修改，请刷新后重试")
	default:
		handleKindError(c, 22000, err)
	}
}
