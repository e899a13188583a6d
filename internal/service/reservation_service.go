package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ReservationService 访客预约接口
type ReservationService interface {
	// Reserve 预约 start 开始的时段；时段不可用时返回 ErrSlotUnavailable
	Reserve(ctx context.Context, eventTypeID string, req *dto.ReserveRequest) (*dto.ReservationResponse, error)
}

type reservationService struct {
	repo       *repository.Repository
	busy       BusyService
	cache      SlotCache
	dispatcher *hostDispatcher
	holdTTL    time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(cfg *config.Config, repo *repository.Repository, busy BusyService, cache SlotCache, logger *zap.Logger) ReservationService {
	return &reservationService{
		repo:       repo,
		busy:       busy,
		cache:      cache,
		dispatcher: newHostDispatcher(),
		holdTTL:    cfg.Booking.PendingHoldTTL,
		timeout:    cfg.Booking.ReserveTimeout,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reservationService) Reserve(ctx context.Context, eventTypeID string, req *dto.ReserveRequest) (*dto.ReservationResponse, error) {
	if _, err := loadLocation(req.Timezone); err != nil {
		return nil, err
	}
	if req.StartTime.IsZero() {
		return nil, pkgerrors.Input("开始时间不能为空")
	}
	start := req.StartTime.UTC()

	// ── 临界区之外：加载配置并读取外部忙碌时间 ──

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

	hostDate := availability.DateOf(start, spec.Location)
	day := hostDate.Bounds(spec.Location)
	window := busyWindow(day, rule)
	external, degraded := s.busy.ExternalBusy(ctx, et.UserID, window)

	// ── 临界区：同一主机的预约逐个提交 ──

	var booking *model.Booking
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.dispatcher.Do(qctx, et.UserID, func(ctx context.Context) error {
		return s.repo.Booking.WithHostLock(ctx, et.UserID, func(tx repository.BookingRepository) error {
			now := s.now()

			if _, err := tx.ExpireStaleHolds(ctx, et.UserID, now); err != nil {
				return pkgerrors.Persistence(err)
			}

			active, err := tx.ListActiveInRange(ctx, et.UserID, window.Start, window.End, now)
			if err != nil {
				return pkgerrors.Persistence(err)
			}
			count := 0
			if rule.MaxPerDay > 0 {
				n, err := tx.CountActiveForEventType(ctx, et.ID, day.Start, day.End, now)
				if err != nil {
					return pkgerrors.Persistence(err)
				}
				count = int(n)
			}

			slots := availability.GenerateSlots(availability.SlotInput{
				Rule:      rule,
				Day:       day,
				Available: spec.ResolveDate(hostDate),
				Busy:      availability.MergeBusy(bookingIntervals(active), external),
				DayCount:  count,
				Now:       now,
			})
			if !availability.ContainsSlot(slots, start) {
				return ErrSlotUnavailable
			}

			b := newBooking(et, rule, req, start, now, s.holdTTL)
			if err := tx.CreateIfNoOverlap(ctx, b, now); err != nil {
				if errors.Is(err, repository.ErrBookingOverlap) {
					return ErrSlotUnavailable
				}
				return pkgerrors.Persistence(err)
			}
			booking = b
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("预约排队超时", zap.String("host_id", et.UserID), zap.String("event_type_id", et.ID))
			return nil, ErrReservationBusy
		}
		if errors.Is(err, pkgerrors.ErrConflict) {
			s.logger.Info("预约冲突",
				zap.String("event_type_id", et.ID),
				zap.Time("start", start),
			)
			return nil, err
		}
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("创建预约失败", zap.String("event_type_id", et.ID), zap.Error(err))
		}
		return nil, err
	}

	invalidateHost(ctx, s.cache, s.logger, et.UserID)

	s.logger.Info("预约已创建",
		zap.String("booking_id", booking.ID),
		zap.String("event_type_id", et.ID),
		zap.String("status", booking.Status),
		zap.Time("start", booking.StartTime),
	)

	return &dto.ReservationResponse{
		Booking:     toBookingResponse(booking, et.Title),
		CancelToken: booking.CancelToken,
		Degraded:    degraded,
	}, nil
}

// newBooking 免费事件直接确认；收费事件进入待付款并占位 holdTTL
func newBooking(et *model.EventType, rule availability.SlotRule, req *dto.ReserveRequest, start, now time.Time, holdTTL time.Duration) *model.Booking {
	blocked := rule.Blocked(start)
	b := &model.Booking{
		ID:           uuid.NewString(),
		EventTypeID:  et.ID,
		UserID:       et.UserID,
		GuestName:    req.GuestName,
		GuestEmail:   req.GuestEmail,
		GuestPhone:   req.GuestPhone,
		GuestNotes:   req.GuestNotes,
		StartTime:    start,
		EndTime:      start.Add(rule.Duration),
		BlockedStart: blocked.Start,
		BlockedEnd:   blocked.End,
		Timezone:     req.Timezone,
		Location:     et.LocationDetails,
		PriceCents:   et.PriceCents,
		Currency:     et.Currency,
		CancelToken:  uuid.NewString(),
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	if et.IsPaid() {
		hold := now.Add(holdTTL)
		b.Status = model.BookingStatusPending
		b.PaymentStatus = model.PaymentStatusPending
		b.HoldExpiresAt = &hold
	} else {
		b.Status = model.BookingStatusConfirmed
		b.PaymentStatus = model.PaymentStatusPaid
	}
	return b
}
