package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/response"
)

// ProfileHandler 主机资料
type ProfileHandler struct {
	hostSvc service.HostService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(hostSvc service.HostService) *ProfileHandler {
	return &ProfileHandler{hostSvc: hostSvc}
}

// Get GET /api/v1/me/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	profile, err := h.hostSvc.GetProfile(c.Request.Context(), hostID)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

// Upsert PUT /api/v1/me/profile
func (h *ProfileHandler) Upsert(c *gin.Context) {
	hostID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, 27001, err)
		return
	}

	profile, err := h.hostSvc.UpsertProfile(c.Request.Context(), hostID, &req)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

func (h *ProfileHandler) handleProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHostNotFound):
		response.NotFound(c, 27201, "尚未创建主机资料")
	case errors.Is(err, service.ErrUsernameTaken):
		response.Conflict(c, 27202, "用户名已被占用")
	case errors.Is(err, service.ErrInvalidTimezone):
		response.BadRequest(c, 27203, "时区无效")
	default:
		handleKindError(c, 27000, err)
	}
}
