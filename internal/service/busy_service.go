package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/calendar"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// BusySet 主机在某范围内的忙碌区间
type BusySet struct {
	Intervals []availability.Interval // 升序且互不重叠
	Degraded  bool                    // 外部来源失败，结果只含内部预约
}

// BusyService 忙碌区间聚合接口
type BusyService interface {
	// BusyIntervals 有效预约的占用区间与外部忙碌区间合并
	BusyIntervals(ctx context.Context, hostID string, rng availability.Interval, now time.Time) (*BusySet, error)
	// ExternalBusy 仅读取外部来源；失败时返回已取得的部分并标记降级
	ExternalBusy(ctx context.Context, hostID string, rng availability.Interval) ([]availability.Interval, bool)
}

type busyService struct {
	repo     *repository.Repository
	external calendar.Source
	logger   *zap.Logger
}

// NewBusyService 创建 BusyService 实例；external 为 nil 时只计内部预约
func NewBusyService(repo *repository.Repository, external calendar.Source, logger *zap.Logger) BusyService {
	return &busyService{repo: repo, external: external, logger: logger}
}

func (s *busyService) BusyIntervals(ctx context.Context, hostID string, rng availability.Interval, now time.Time) (*BusySet, error) {
	if !rng.Valid() {
		return nil, ErrInvalidDateRange
	}

	bookings, err := s.repo.Booking.ListActiveInRange(ctx, hostID, rng.Start, rng.End, now)
	if err != nil {
		s.logger.Error("查询有效预约失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}

	external, degraded := s.ExternalBusy(ctx, hostID, rng)
	return &BusySet{
		Intervals: availability.MergeBusy(bookingIntervals(bookings), external),
		Degraded:  degraded,
	}, nil
}

func (s *busyService) ExternalBusy(ctx context.Context, hostID string, rng availability.Interval) ([]availability.Interval, bool) {
	if s.external == nil {
		return nil, false
	}
	busy, err := s.external.FetchBusy(ctx, hostID, rng)
	if err != nil {
		s.logger.Warn("外部日历忙碌时间获取失败，按降级处理",
			zap.String("host_id", hostID),
			zap.Time("from", rng.Start),
			zap.Time("to", rng.End),
			zap.Error(err),
		)
		return busy, true
	}
	return busy, false
}
