package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ScheduleService 可用时间方案业务接口
type ScheduleService interface {
	List(ctx context.Context, hostID string) ([]dto.ScheduleResponse, error)
	Create(ctx context.Context, hostID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, hostID, id string) (*dto.ScheduleResponse, error)
	Update(ctx context.Context, hostID, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	Delete(ctx context.Context, hostID, id string) error

	// ReplaceWeeklySlots 整体替换每周窗口
	ReplaceWeeklySlots(ctx context.Context, hostID, id string, req *dto.ReplaceWeeklySlotsRequest) (*dto.ScheduleResponse, error)
	// UpsertOverride 按日期新增或覆盖例外
	UpsertOverride(ctx context.Context, hostID, id string, req *dto.UpsertOverrideRequest) (*dto.ScheduleResponse, error)
	DeleteOverride(ctx context.Context, hostID, id, date string) error

	// Preview 某天解析后的可用窗口
	Preview(ctx context.Context, hostID, id string, req *dto.PreviewRequest) (*dto.PreviewResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	cache  SlotCache
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, cache SlotCache, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, cache: cache, logger: logger}
}

func (s *scheduleService) List(ctx context.Context, hostID string) ([]dto.ScheduleResponse, error) {
	list, err := s.repo.Schedule.ListByUser(ctx, hostID)
	if err != nil {
		s.logger.Error("查询方案列表失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	out := make([]dto.ScheduleResponse, 0, len(list))
	for i := range list {
		out = append(out, toScheduleResponse(&list[i]))
	}
	return out, nil
}

func (s *scheduleService) Create(ctx context.Context, hostID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if _, err := loadLocation(req.Timezone); err != nil {
		return nil, err
	}
	slots, err := weeklySlots(req.Slots)
	if err != nil {
		return nil, err
	}

	schedule := &model.AvailabilitySchedule{
		UserID:    hostID,
		Name:      req.Name,
		Timezone:  req.Timezone,
		IsDefault: req.IsDefault,
		Slots:     slots,
	}
	// 首个方案自动成为默认方案
	if !schedule.IsDefault {
		if _, err := s.repo.Schedule.GetDefault(ctx, hostID); errors.Is(err, gorm.ErrRecordNotFound) {
			schedule.IsDefault = true
		}
	}

	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("创建方案失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)

	s.logger.Info("方案已创建", zap.String("schedule_id", schedule.ID), zap.String("host_id", hostID))
	return s.reload(ctx, schedule.ID)
}

func (s *scheduleService) Get(ctx context.Context, hostID, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	resp := toScheduleResponse(schedule)
	return &resp, nil
}

func (s *scheduleService) Update(ctx context.Context, hostID, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	schedule, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Timezone != nil {
		if _, err := loadLocation(*req.Timezone); err != nil {
			return nil, err
		}
		schedule.Timezone = *req.Timezone
	}
	if req.IsDefault != nil {
		schedule.IsDefault = *req.IsDefault
	}
	schedule.Version = req.Version

	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新方案失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)
	return s.reload(ctx, id)
}

// Delete 仍被事件类型引用的方案不可删除
func (s *scheduleService) Delete(ctx context.Context, hostID, id string) error {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return err
	}
	n, err := s.repo.EventType.CountBySchedule(ctx, id)
	if err != nil {
		s.logger.Error("统计方案引用失败", zap.String("schedule_id", id), zap.Error(err))
		return pkgerrors.Persistence(err)
	}
	if n > 0 {
		return ErrScheduleInUse
	}

	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		s.logger.Error("删除方案失败", zap.String("schedule_id", id), zap.Error(err))
		return pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)

	s.logger.Info("方案已删除", zap.String("schedule_id", id))
	return nil
}

func (s *scheduleService) ReplaceWeeklySlots(ctx context.Context, hostID, id string, req *dto.ReplaceWeeklySlotsRequest) (*dto.ScheduleResponse, error) {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return nil, err
	}
	slots, err := weeklySlots(req.Slots)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Schedule.ReplaceWeeklySlots(ctx, id, slots); err != nil {
		s.logger.Error("替换每周窗口失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)
	return s.reload(ctx, id)
}

func (s *scheduleService) UpsertOverride(ctx context.Context, hostID, id string, req *dto.UpsertOverrideRequest) (*dto.ScheduleResponse, error) {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return nil, err
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	override := &model.DateOverride{
		ScheduleID:    id,
		Date:          date.Bounds(time.UTC).Start,
		IsUnavailable: req.IsUnavailable,
	}
	if req.IsUnavailable {
		if req.StartTime != nil || req.EndTime != nil {
			return nil, ErrOverrideWindowSpec
		}
	} else {
		if req.StartTime == nil || req.EndTime == nil {
			return nil, ErrOverrideWindowSpec
		}
		if _, err := clockWindow(*req.StartTime, *req.EndTime); err != nil {
			return nil, err
		}
		override.StartTime = req.StartTime
		override.EndTime = req.EndTime
	}

	if err := s.repo.Schedule.UpsertOverride(ctx, override); err != nil {
		s.logger.Error("保存日期例外失败", zap.String("schedule_id", id), zap.String("date", req.Date), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)
	return s.reload(ctx, id)
}

func (s *scheduleService) DeleteOverride(ctx context.Context, hostID, id, date string) error {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return err
	}
	d, err := availability.ParseDate(date)
	if err != nil {
		return err
	}

	if err := s.repo.Schedule.DeleteOverride(ctx, id, d.Bounds(time.UTC).Start); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOverrideNotFound
		}
		s.logger.Error("删除日期例外失败", zap.String("schedule_id", id), zap.String("date", date), zap.Error(err))
		return pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)
	return nil
}

func (s *scheduleService) Preview(ctx context.Context, hostID, id string, req *dto.PreviewRequest) (*dto.PreviewResponse, error) {
	schedule, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	spec, err := scheduleSpec(schedule)
	if err != nil {
		return nil, err
	}

	day := spec.PlanDay(date)
	resp := &dto.PreviewResponse{
		Date:     date.String(),
		Timezone: schedule.Timezone,
		Windows:  []dto.WindowResponse{},
	}
	switch day.(type) {
	case availability.Unavailable:
		resp.Source = "unavailable"
	case availability.CustomWindow:
		resp.Source = "custom"
	default:
		resp.Source = "recurring"
	}
	for _, iv := range availability.Resolve(day, date, spec.Location) {
		resp.Windows = append(resp.Windows, dto.WindowResponse{
			Start: iv.Start.In(spec.Location).Format(time.RFC3339),
			End:   iv.End.In(spec.Location).Format(time.RFC3339),
		})
	}
	return resp, nil
}

// ── 内部方法 ──

func (s *scheduleService) getOwned(ctx context.Context, hostID, id string) (*model.AvailabilitySchedule, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询方案失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	if schedule.UserID != hostID {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *scheduleService) reload(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("重新加载方案失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	resp := toScheduleResponse(schedule)
	return &resp, nil
}

// weeklySlots 校验每周窗口；同一天内的窗口允许相邻或重叠，解析时会合并
func weeklySlots(in []dto.WeeklySlotInput) ([]model.WeeklySlot, error) {
	out := make([]model.WeeklySlot, 0, len(in))
	for _, w := range in {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return nil, pkgerrors.Input("星期取值应为 0-6")
		}
		cw, err := clockWindow(w.StartTime, w.EndTime)
		if err != nil {
			return nil, err
		}
		out = append(out, model.WeeklySlot{
			DayOfWeek: w.DayOfWeek,
			StartTime: cw.Start.String(),
			EndTime:   cw.End.String(),
		})
	}
	return out, nil
}

func toScheduleResponse(s *model.AvailabilitySchedule) dto.ScheduleResponse {
	resp := dto.ScheduleResponse{
		ID:        s.ID,
		Name:      s.Name,
		Timezone:  s.Timezone,
		IsDefault: s.IsDefault,
		Version:   s.Version,
		Slots:     make([]dto.WeeklySlotResponse, 0, len(s.Slots)),
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
	for _, slot := range s.Slots {
		resp.Slots = append(resp.Slots, dto.WeeklySlotResponse{
			DayOfWeek: slot.DayOfWeek,
			StartTime: shortClock(slot.StartTime),
			EndTime:   shortClock(slot.EndTime),
		})
	}
	for _, o := range s.Overrides {
		resp.Overrides = append(resp.Overrides, dto.OverrideResponse{
			Date:          o.Date.Format(time.DateOnly),
			IsUnavailable: o.IsUnavailable,
			StartTime:     shortClockPtr(o.StartTime),
			EndTime:       shortClockPtr(o.EndTime),
		})
	}
	return resp
}

// shortClock 数据库返回 HH:MM:SS，对外统一为 HH:MM
func shortClock(s string) string {
	if c, err := availability.ParseClock(s); err == nil {
		return c.String()
	}
	return s
}

func shortClockPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := shortClock(*s)
	return &v
}
