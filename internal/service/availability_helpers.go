package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ── 模型与纯函数核心之间的转换 ──

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// scheduleSpec 将方案及其窗口、例外转换为 availability.ScheduleSpec
func scheduleSpec(s *model.AvailabilitySchedule) (availability.ScheduleSpec, error) {
	loc, err := loadLocation(s.Timezone)
	if err != nil {
		return availability.ScheduleSpec{}, err
	}

	spec := availability.ScheduleSpec{
		Location:  loc,
		Weekly:    make([]availability.WeeklyWindow, 0, len(s.Slots)),
		Overrides: make(map[availability.Date]availability.Override, len(s.Overrides)),
	}
	for _, slot := range s.Slots {
		w, err := clockWindow(slot.StartTime, slot.EndTime)
		if err != nil {
			return availability.ScheduleSpec{}, fmt.Errorf("方案 %s 的每周窗口无效: %w", s.ID, err)
		}
		spec.Weekly = append(spec.Weekly, availability.WeeklyWindow{
			Weekday: time.Weekday(slot.DayOfWeek),
			Window:  w,
		})
	}
	for _, o := range s.Overrides {
		date := availability.DateOf(o.Date, time.UTC)
		if o.IsUnavailable {
			spec.Overrides[date] = availability.Override{Unavailable: true}
			continue
		}
		if o.StartTime == nil || o.EndTime == nil {
			return availability.ScheduleSpec{}, ErrOverrideWindowSpec
		}
		w, err := clockWindow(*o.StartTime, *o.EndTime)
		if err != nil {
			return availability.ScheduleSpec{}, err
		}
		spec.Overrides[date] = availability.Override{Window: w}
	}
	return spec, nil
}

func clockWindow(start, end string) (availability.ClockWindow, error) {
	s, err := availability.ParseClock(start)
	if err != nil {
		return availability.ClockWindow{}, err
	}
	e, err := availability.ParseClock(end)
	if err != nil {
		return availability.ClockWindow{}, err
	}
	// 数据库 time 类型把 24:00 读回为 24:00:00，而 00:00 结束视为跨到次日零点
	if e == 0 && s > 0 {
		e = availability.EndOfDay
	}
	w := availability.ClockWindow{Start: s, End: e}
	return w, w.Validate()
}

// slotRule 事件类型的出时段规则
func slotRule(et *model.EventType) availability.SlotRule {
	rule := availability.SlotRule{
		Duration:     time.Duration(et.DurationMinutes) * time.Minute,
		BufferBefore: time.Duration(et.BufferMinutesBefore) * time.Minute,
		BufferAfter:  time.Duration(et.BufferMinutesAfter) * time.Minute,
		MinNotice:    time.Duration(et.MinNoticeHours) * time.Hour,
		Horizon:      time.Duration(et.MaxDaysInAdvance) * 24 * time.Hour,
	}
	if et.MaxBookingsPerDay != nil {
		rule.MaxPerDay = *et.MaxBookingsPerDay
	}
	return rule
}

// bookingIntervals 预约自身的占用区间（创建时已含其事件类型的缓冲）
func bookingIntervals(bookings []model.Booking) []availability.Interval {
	out := make([]availability.Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, availability.Interval{Start: b.BlockedStart, End: b.BlockedEnd})
	}
	return out
}

// busyWindow 影响 day 内候选时段的忙碌区间查询范围
func busyWindow(day availability.Interval, rule availability.SlotRule) availability.Interval {
	return availability.Interval{
		Start: day.Start.Add(-rule.BufferBefore),
		End:   day.End.Add(rule.BufferAfter),
	}
}

// loadEventSchedule 加载事件类型使用的方案：指定方案优先，否则使用主机默认方案
func loadEventSchedule(ctx context.Context, repo *repository.Repository, et *model.EventType) (*model.AvailabilitySchedule, error) {
	var (
		schedule *model.AvailabilitySchedule
		err      error
	)
	if et.ScheduleID != nil && *et.ScheduleID != "" {
		schedule, err = repo.Schedule.GetByID(ctx, *et.ScheduleID)
	} else {
		schedule, err = repo.Schedule.GetDefault(ctx, et.UserID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if et.ScheduleID == nil {
				return nil, ErrNoDefaultSchedule
			}
			return nil, ErrScheduleNotFound
		}
		return nil, pkgerrors.Persistence(err)
	}
	return schedule, nil
}

// loadActiveEventType 加载对访客可见的事件类型
func loadActiveEventType(ctx context.Context, repo *repository.Repository, id string) (*model.EventType, error) {
	et, err := repo.EventType.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventTypeNotFound
		}
		return nil, pkgerrors.Persistence(err)
	}
	if !et.IsActive {
		return nil, ErrEventTypeNotFound
	}
	return et, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── 缓存失效 ──

// invalidateHost 主机的可用性或预约变化后递增缓存代数；缓存不可用时仅记录
func invalidateHost(ctx context.Context, cache SlotCache, logger *zap.Logger, hostID string) {
	if cache == nil {
		return
	}
	if err := cache.BumpGeneration(ctx, hostID); err != nil {
		logger.Warn("时段缓存失效失败", zap.String("host_id", hostID), zap.Error(err))
	}
}

const rfc3339 = time.RFC3339

func formatTime(t time.Time) string { return t.UTC().Format(rfc3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
