package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// SlotService 候选时段查询接口
type SlotService interface {
	// CandidateSlots 访客时区下某天的可预约开始时刻
	CandidateSlots(ctx context.Context, eventTypeID string, q *dto.SlotQuery) (*dto.SlotsResponse, error)
}

type slotService struct {
	repo     *repository.Repository
	busy     BusyService
	cache    SlotCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSlotService 创建 SlotService 实例；cache 为 nil 或 cacheTTL 为 0 时不缓存
func NewSlotService(repo *repository.Repository, busy BusyService, cache SlotCache, cacheTTL time.Duration, logger *zap.Logger) SlotService {
	return &slotService{
		repo:     repo,
		busy:     busy,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

type cachedSlots struct {
	Slots []time.Time `json:"slots"`
}

func (s *slotService) CandidateSlots(ctx context.Context, eventTypeID string, q *dto.SlotQuery) (*dto.SlotsResponse, error) {
	date, err := availability.ParseDate(q.Date)
	if err != nil {
		return nil, err
	}

	et, err := loadActiveEventType(ctx, s.repo, eventTypeID)
	if err != nil {
		return nil, err
	}
	rule := slotRule(et)
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	schedule, err := loadEventSchedule(ctx, s.repo, et)
	if err != nil {
		return nil, err
	}
	spec, err := scheduleSpec(schedule)
	if err != nil {
		return nil, err
	}

	guestLoc := spec.Location
	if q.Timezone != "" {
		if guestLoc, err = loadLocation(q.Timezone); err != nil {
			return nil, err
		}
	}

	resp := &dto.SlotsResponse{
		EventTypeID:     et.ID,
		Date:            date.String(),
		Timezone:        guestLoc.String(),
		DurationMinutes: et.DurationMinutes,
		Slots:           []dto.SlotItem{},
	}

	now := s.now()
	key, cacheable := s.cacheKey(ctx, et, date, guestLoc)
	if cacheable {
		var cached cachedSlots
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("读取时段缓存失败", zap.String("key", key), zap.Error(err))
		}
		if hit {
			// 缓存生成后时间已推移，按当前时刻重新过滤提前量
			earliest := now.Add(rule.MinNotice).Truncate(time.Minute)
			for _, t := range cached.Slots {
				if !t.Before(earliest) {
					resp.Slots = append(resp.Slots, slotItem(t, rule.Duration, guestLoc))
				}
			}
			return resp, nil
		}
	}

	slots, degraded, err := s.guestDaySlots(ctx, et, rule, spec, date, guestLoc, now)
	if err != nil {
		return nil, err
	}
	for _, t := range slots {
		resp.Slots = append(resp.Slots, slotItem(t, rule.Duration, guestLoc))
	}
	resp.Degraded = degraded

	if cacheable && !degraded {
		if err := s.cache.SetJSON(ctx, key, cachedSlots{Slots: slots}, s.cacheTTL); err != nil {
			s.logger.Warn("写入时段缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

// guestDaySlots 按主机日生成候选时刻，再截取落在访客当天的部分
func (s *slotService) guestDaySlots(
	ctx context.Context,
	et *model.EventType,
	rule availability.SlotRule,
	spec availability.ScheduleSpec,
	date availability.Date,
	guestLoc *time.Location,
	now time.Time,
) ([]time.Time, bool, error) {
	guestDay := date.Bounds(guestLoc)
	first := availability.DateOf(guestDay.Start, spec.Location)
	last := availability.DateOf(guestDay.End.Add(-time.Nanosecond), spec.Location)

	var hostDays []availability.Date
	for d := first; !last.Before(d); d = d.AddDays(1) {
		hostDays = append(hostDays, d)
	}

	// 一次读取覆盖所有主机日的忙碌区间
	rng := availability.Interval{
		Start: busyWindow(hostDays[0].Bounds(spec.Location), rule).Start,
		End:   busyWindow(hostDays[len(hostDays)-1].Bounds(spec.Location), rule).End,
	}
	busy, err := s.busy.BusyIntervals(ctx, et.UserID, rng, now)
	if err != nil {
		return nil, false, err
	}

	var out []time.Time
	for _, d := range hostDays {
		day := d.Bounds(spec.Location)
		available := spec.ResolveDate(d)
		if len(available) == 0 {
			continue
		}

		count := 0
		if rule.MaxPerDay > 0 {
			n, err := s.repo.Booking.CountActiveForEventType(ctx, et.ID, day.Start, day.End, now)
			if err != nil {
				s.logger.Error("统计当日预约数失败", zap.String("event_type_id", et.ID), zap.Error(err))
				return nil, false, pkgerrors.Persistence(err)
			}
			count = int(n)
		}

		for _, t := range availability.GenerateSlots(availability.SlotInput{
			Rule:      rule,
			Day:       day,
			Available: available,
			Busy:      busy.Intervals,
			DayCount:  count,
			Now:       now,
		}) {
			if !t.Before(guestDay.Start) && t.Before(guestDay.End) {
				out = append(out, t)
			}
		}
	}
	return out, busy.Degraded, nil
}

// cacheKey 键中带主机缓存代数，主机数据变更后旧键不再命中
func (s *slotService) cacheKey(ctx context.Context, et *model.EventType, date availability.Date, guestLoc *time.Location) (string, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return "", false
	}
	gen, err := s.cache.Generation(ctx, et.UserID)
	if err != nil {
		s.logger.Warn("读取时段缓存代数失败", zap.String("host_id", et.UserID), zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("slots:%s:%d:%s:%s", et.ID, gen, date, guestLoc), true
}

func slotItem(t time.Time, d time.Duration, loc *time.Location) dto.SlotItem {
	return dto.SlotItem{
		Start: t.In(loc).Format(time.RFC3339),
		End:   t.Add(d).In(loc).Format(time.RFC3339),
	}
}
