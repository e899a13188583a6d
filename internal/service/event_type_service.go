package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// EventTypeService 事件类型业务接口
type EventTypeService interface {
	// 主机管理
	List(ctx context.Context, hostID string) ([]dto.EventTypeResponse, error)
	Create(ctx context.Context, hostID string, req *dto.CreateEventTypeRequest) (*dto.EventTypeResponse, error)
	Get(ctx context.Context, hostID, id string) (*dto.EventTypeResponse, error)
	Update(ctx context.Context, hostID, id string, req *dto.UpdateEventTypeRequest) (*dto.EventTypeResponse, error)
	Delete(ctx context.Context, hostID, id string) error

	// 公开页面
	ListByUsername(ctx context.Context, username string) ([]dto.EventTypeResponse, error)
	GetBySlug(ctx context.Context, username, slug string) (*dto.EventTypeResponse, error)
}

type eventTypeService struct {
	repo   *repository.Repository
	cache  SlotCache
	logger *zap.Logger
}

// NewEventTypeService 创建 EventTypeService 实例
func NewEventTypeService(repo *repository.Repository, cache SlotCache, logger *zap.Logger) EventTypeService {
	return &eventTypeService{repo: repo, cache: cache, logger: logger}
}

func (s *eventTypeService) List(ctx context.Context, hostID string) ([]dto.EventTypeResponse, error) {
	list, err := s.repo.EventType.ListByUser(ctx, hostID, false)
	if err != nil {
		s.logger.Error("查询事件类型失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	return toEventTypeResponses(list), nil
}

func (s *eventTypeService) Create(ctx context.Context, hostID string, req *dto.CreateEventTypeRequest) (*dto.EventTypeResponse, error) {
	if req.ScheduleID != nil {
		if err := s.checkSchedule(ctx, hostID, *req.ScheduleID); err != nil {
			return nil, err
		}
	}

	et := &model.EventType{
		UserID:              hostID,
		Title:               req.Title,
		Slug:                req.Slug,
		Description:         req.Description,
		DurationMinutes:     req.DurationMinutes,
		LocationType:        withDefault(req.LocationType, "video"),
		LocationDetails:     req.LocationDetails,
		Color:               withDefault(req.Color, "#3b82f6"),
		IsActive:            true,
		BufferMinutesBefore: req.BufferMinutesBefore,
		BufferMinutesAfter:  req.BufferMinutesAfter,
		MaxBookingsPerDay:   req.MaxBookingsPerDay,
		MinNoticeHours:      req.MinNoticeHours,
		MaxDaysInAdvance:    req.MaxDaysInAdvance,
		PriceCents:          req.PriceCents,
		Currency:            withDefault(req.Currency, "USD"),
		ScheduleID:          req.ScheduleID,
	}
	if et.MaxDaysInAdvance == 0 {
		et.MaxDaysInAdvance = 60
	}
	if err := slotRule(et).Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.EventType.Create(ctx, et); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		s.logger.Error("创建事件类型失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}

	s.logger.Info("事件类型已创建", zap.String("event_type_id", et.ID), zap.String("slug", et.Slug))
	resp := toEventTypeResponse(et)
	return &resp, nil
}

func (s *eventTypeService) Get(ctx context.Context, hostID, id string) (*dto.EventTypeResponse, error) {
	et, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	resp := toEventTypeResponse(et)
	return &resp, nil
}

func (s *eventTypeService) Update(ctx context.Context, hostID, id string, req *dto.UpdateEventTypeRequest) (*dto.EventTypeResponse, error) {
	et, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		et.Title = *req.Title
	}
	if req.Slug != nil {
		et.Slug = *req.Slug
	}
	if req.Description != nil {
		et.Description = req.Description
	}
	if req.DurationMinutes != nil {
		et.DurationMinutes = *req.DurationMinutes
	}
	if req.LocationType != nil {
		et.LocationType = *req.LocationType
	}
	if req.LocationDetails != nil {
		et.LocationDetails = req.LocationDetails
	}
	if req.Color != nil {
		et.Color = *req.Color
	}
	if req.IsActive != nil {
		et.IsActive = *req.IsActive
	}
	if req.BufferMinutesBefore != nil {
		et.BufferMinutesBefore = *req.BufferMinutesBefore
	}
	if req.BufferMinutesAfter != nil {
		et.BufferMinutesAfter = *req.BufferMinutesAfter
	}
	if req.MaxBookingsPerDay != nil {
		if *req.MaxBookingsPerDay == 0 {
			et.MaxBookingsPerDay = nil
		} else {
			et.MaxBookingsPerDay = req.MaxBookingsPerDay
		}
	}
	if req.MinNoticeHours != nil {
		et.MinNoticeHours = *req.MinNoticeHours
	}
	if req.MaxDaysInAdvance != nil {
		et.MaxDaysInAdvance = *req.MaxDaysInAdvance
	}
	if req.PriceCents != nil {
		et.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		et.Currency = *req.Currency
	}
	if req.ScheduleID != nil {
		if err := s.checkSchedule(ctx, hostID, *req.ScheduleID); err != nil {
			return nil, err
		}
		et.ScheduleID = req.ScheduleID
	}
	if err := slotRule(et).Validate(); err != nil {
		return nil, err
	}
	et.Version = req.Version

	if err := s.repo.EventType.Update(ctx, et); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		s.logger.Error("更新事件类型失败", zap.String("event_type_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)

	resp := toEventTypeResponse(et)
	return &resp, nil
}

// Delete 软删除；已有预约不受影响
func (s *eventTypeService) Delete(ctx context.Context, hostID, id string) error {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return err
	}
	if err := s.repo.EventType.Delete(ctx, id); err != nil {
		s.logger.Error("删除事件类型失败", zap.String("event_type_id", id), zap.Error(err))
		return pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)

	s.logger.Info("事件类型已删除", zap.String("event_type_id", id))
	return nil
}

func (s *eventTypeService) ListByUsername(ctx context.Context, username string) ([]dto.EventTypeResponse, error) {
	host, err := s.hostByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.EventType.ListByUser(ctx, host.ID, true)
	if err != nil {
		s.logger.Error("查询公开事件类型失败", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	out := toEventTypeResponses(list)
	brief := toHostBrief(host)
	for i := range out {
		out[i].Host = brief
	}
	return out, nil
}

func (s *eventTypeService) GetBySlug(ctx context.Context, username, slug string) (*dto.EventTypeResponse, error) {
	host, err := s.hostByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	et, err := s.repo.EventType.GetBySlug(ctx, host.ID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventTypeNotFound
		}
		s.logger.Error("查询事件类型失败", zap.String("slug", slug), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	if !et.IsActive {
		return nil, ErrEventTypeNotFound
	}
	resp := toEventTypeResponse(et)
	resp.Host = toHostBrief(host)
	return &resp, nil
}

// ── 内部方法 ──

func (s *eventTypeService) getOwned(ctx context.Context, hostID, id string) (*model.EventType, error) {
	et, err := s.repo.EventType.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventTypeNotFound
		}
		s.logger.Error("查询事件类型失败", zap.String("event_type_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	if et.UserID != hostID {
		return nil, ErrEventTypeNotFound
	}
	return et, nil
}

func (s *eventTypeService) checkSchedule(ctx context.Context, hostID, scheduleID string) error {
	schedule, err := s.repo.Schedule.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return pkgerrors.Persistence(err)
	}
	if schedule.UserID != hostID {
		return ErrScheduleNotFound
	}
	return nil
}

func (s *eventTypeService) hostByUsername(ctx context.Context, username string) (*model.Host, error) {
	host, err := s.repo.Host.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHostNotFound
		}
		s.logger.Error("查询主机失败", zap.String("username", username), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	return host, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func toEventTypeResponses(list []model.EventType) []dto.EventTypeResponse {
	out := make([]dto.EventTypeResponse, 0, len(list))
	for i := range list {
		out = append(out, toEventTypeResponse(&list[i]))
	}
	return out
}

func toEventTypeResponse(et *model.EventType) dto.EventTypeResponse {
	resp := dto.EventTypeResponse{
		ID:                  et.ID,
		Title:               et.Title,
		Slug:                et.Slug,
		Description:         et.Description,
		DurationMinutes:     et.DurationMinutes,
		LocationType:        et.LocationType,
		LocationDetails:     et.LocationDetails,
		Color:               et.Color,
		IsActive:            et.IsActive,
		BufferMinutesBefore: et.BufferMinutesBefore,
		BufferMinutesAfter:  et.BufferMinutesAfter,
		MaxBookingsPerDay:   et.MaxBookingsPerDay,
		MinNoticeHours:      et.MinNoticeHours,
		MaxDaysInAdvance:    et.MaxDaysInAdvance,
		PriceCents:          et.PriceCents,
		Currency:            et.Currency,
		ScheduleID:          et.ScheduleID,
		Version:             et.Version,
	}
	if et.Host != nil {
		resp.Host = toHostBrief(et.Host)
	}
	return resp
}
