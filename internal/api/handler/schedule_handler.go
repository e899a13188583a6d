package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
	"github.com/dix105/calendly-clone/pkg/response"
)

// ScheduleHandler 可用时间方案 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// List 方案列表
// GET /api/v1/me/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.scheduleSvc.List(c.Request.Context(), hostID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create 创建方案
// POST /api/v1/me/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	schedule, err := h.scheduleSvc.Create(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// Get 方案详情
// GET /api/v1/me/schedules/:id
func (h *ScheduleHandler) Get(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Get(c.Request.Context(), hostID, c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// Update 更新方案基本信息
// PUT /api/v1/me/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	schedule, err := h.scheduleSvc.Update(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// Delete 删除方案
// DELETE /api/v1/me/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.scheduleSvc.Delete(c.Request.Context(), hostID, c.Param("id")); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// ReplaceWeeklySlots 整体替换每周窗口
// PUT /api/v1/me/schedules/:id/weekly-slots
func (h *ScheduleHandler) ReplaceWeeklySlots(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReplaceWeeklySlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	schedule, err := h.scheduleSvc.ReplaceWeeklySlots(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// UpsertOverride 新增或覆盖某天的例外
// PUT /api/v1/me/schedules/:id/overrides
func (h *ScheduleHandler) UpsertOverride(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpsertOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	schedule, err := h.scheduleSvc.UpsertOverride(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// DeleteOverride 删除某天的例外
// DELETE /api/v1/me/schedules/:id/overrides/:date
func (h *ScheduleHandler) DeleteOverride(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.scheduleSvc.DeleteOverride(c.Request.Context(), hostID, c.Param("id"), c.Param("date")); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// Preview 某天解析后的可用窗口
// GET /api/v1/me/schedules/:id/preview?date=YYYY-MM-DD
func (h *ScheduleHandler) Preview(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, 21001, err)
		return
	}

	preview, err := h.scheduleSvc.Preview(c.Request.Context(), hostID, c.Param("id"), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, preview)
}

// handleScheduleError 统一处理方案模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 21101, "可用时间方案不存在")
	case errors.Is(err, service.ErrScheduleInUse):
		response.Conflict(c, 21102, "方案仍被事件类型使用，无法删除")
	case errors.Is(err, service.ErrOverrideNotFound):
		response.NotFound(c, 21103, "日期例外不存在")
	case errors.Is(err, service.ErrInvalidTimezone):
		response.BadRequest(c, 21104, "时区无效")
	case errors.Is(err, service.ErrOverrideWindowSpec):
		response.BadRequest(c, 21105, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 21106, "方案已被修改，请刷新后重试")
	default:
		handleKindError(c, 21000, err)
	}
}
