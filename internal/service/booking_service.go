package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// BookingService 预约管理接口
type BookingService interface {
	// 主机视角
	List(ctx context.Context, hostID string, req *dto.BookingListRequest) ([]dto.BookingResponse, int64, error)
	Get(ctx context.Context, hostID, id string) (*dto.BookingResponse, error)
	Confirm(ctx context.Context, hostID, id string) (*dto.BookingResponse, error)
	CancelByHost(ctx context.Context, hostID, id string, req *dto.CancelBookingRequest) (*dto.BookingResponse, error)

	// 访客视角（凭取消令牌）
	CancelByGuest(ctx context.Context, id string, req *dto.GuestCancelRequest) (*dto.BookingResponse, error)
	InviteICS(ctx context.Context, id, token string) ([]byte, error)

	// ExpireStaleHolds 取消所有占位过期的待付款预约，返回处理条数
	ExpireStaleHolds(ctx context.Context) (int, error)
}

type bookingService struct {
	repo    *repository.Repository
	cache   SlotCache
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(cfg *config.Config, repo *repository.Repository, cache SlotCache, logger *zap.Logger) BookingService {
	return &bookingService{
		repo:    repo,
		cache:   cache,
		baseURL: strings.TrimRight(cfg.Server.BaseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *bookingService) List(ctx context.Context, hostID string, req *dto.BookingListRequest) ([]dto.BookingResponse, int64, error) {
	loc := s.hostLocation(ctx, hostID)
	filter := repository.BookingFilter{
		UserID: hostID,
		Status: req.Status,
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	}
	if req.From != "" {
		d, err := availability.ParseDate(req.From)
		if err != nil {
			return nil, 0, err
		}
		from := d.Bounds(loc).Start
		filter.From = &from
	}
	if req.To != "" {
		d, err := availability.ParseDate(req.To)
		if err != nil {
			return nil, 0, err
		}
		to := d.Bounds(loc).End
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, ErrInvalidDateRange
	}

	list, total, err := s.repo.Booking.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, 0, pkgerrors.Persistence(err)
	}

	out := make([]dto.BookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i], eventTitle(&list[i])))
	}
	return out, total, nil
}

func (s *bookingService) Get(ctx context.Context, hostID, id string) (*dto.BookingResponse, error) {
	b, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	resp := toBookingResponse(b, eventTitle(b))
	return &resp, nil
}

// Confirm 付款完成后确认待付款预约；占位已过期的不可确认
func (s *bookingService) Confirm(ctx context.Context, hostID, id string) (*dto.BookingResponse, error) {
	if _, err := s.getOwned(ctx, hostID, id); err != nil {
		return nil, err
	}

	var confirmed *model.Booking
	err := s.repo.Booking.WithHostLock(ctx, hostID, func(tx repository.BookingRepository) error {
		b, err := tx.GetByID(ctx, id)
		if err != nil {
			return pkgerrors.Persistence(err)
		}
		if !b.IsActive(s.now()) || b.Status != model.BookingStatusPending {
			return ErrBookingState
		}
		err = tx.Transition(ctx, id, []string{model.BookingStatusPending}, map[string]interface{}{
			"status":          model.BookingStatusConfirmed,
			"payment_status":  model.PaymentStatusPaid,
			"hold_expires_at": nil,
		})
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrBookingState
			}
			return pkgerrors.Persistence(err)
		}
		b.Status = model.BookingStatusConfirmed
		b.PaymentStatus = model.PaymentStatusPaid
		b.HoldExpiresAt = nil
		confirmed = b
		return nil
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrConflict) {
			s.logger.Error("确认预约失败", zap.String("booking_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("预约已确认", zap.String("booking_id", id))
	resp := toBookingResponse(confirmed, eventTitle(confirmed))
	return &resp, nil
}

func (s *bookingService) CancelByHost(ctx context.Context, hostID, id string, req *dto.CancelBookingRequest) (*dto.BookingResponse, error) {
	b, err := s.getOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b, req.Reason)
}

func (s *bookingService) CancelByGuest(ctx context.Context, id string, req *dto.GuestCancelRequest) (*dto.BookingResponse, error) {
	b, err := s.getByToken(ctx, id, req.Token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b, req.Reason)
}

// cancel 取消后时段立即释放
func (s *bookingService) cancel(ctx context.Context, b *model.Booking, reason *string) (*dto.BookingResponse, error) {
	now := s.now()
	err := s.repo.Booking.Transition(ctx, b.ID,
		[]string{model.BookingStatusPending, model.BookingStatusConfirmed},
		map[string]interface{}{
			"status":        model.BookingStatusCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrBookingState
		}
		s.logger.Error("取消预约失败", zap.String("booking_id", b.ID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}

	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &now
	b.CancelReason = reason
	invalidateHost(ctx, s.cache, s.logger, b.UserID)

	s.logger.Info("预约已取消", zap.String("booking_id", b.ID))
	resp := toBookingResponse(b, eventTitle(b))
	return &resp, nil
}

func (s *bookingService) ExpireStaleHolds(ctx context.Context) (int, error) {
	expired, err := s.repo.Booking.ExpireStaleHolds(ctx, "", s.now())
	if err != nil {
		s.logger.Error("清理过期占位失败", zap.Error(err))
		return 0, pkgerrors.Persistence(err)
	}

	hosts := make(map[string]struct{})
	for _, b := range expired {
		hosts[b.UserID] = struct{}{}
	}
	for hostID := range hosts {
		invalidateHost(ctx, s.cache, s.logger, hostID)
	}
	return len(expired), nil
}

// InviteICS 生成可导入日历的邀请文件
func (s *bookingService) InviteICS(ctx context.Context, id, token string) ([]byte, error) {
	b, err := s.getByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, ErrBookingState
	}

	var host *model.Host
	if b.EventType != nil && b.EventType.Host != nil {
		host = b.EventType.Host
	} else if h, err := s.repo.Host.GetByID(ctx, b.UserID); err == nil {
		host = h
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//calendly-clone//booking//CN")

	event := cal.AddEvent(b.ID + "@calendly-clone")
	event.SetDtStampTime(s.now().UTC())
	event.SetCreatedTime(b.CreatedAt.UTC())
	event.SetStartAt(b.StartTime.UTC())
	event.SetEndAt(b.EndTime.UTC())
	event.SetSummary(inviteSummary(b, host))
	if b.GuestNotes != nil {
		event.SetDescription(*b.GuestNotes)
	}
	if b.Location != nil {
		event.SetLocation(*b.Location)
	}
	if s.baseURL != "" {
		event.SetURL(fmt.Sprintf("%s/api/v1/bookings/%s/invite.ics?token=%s", s.baseURL, b.ID, b.CancelToken))
	}
	if b.Status == model.BookingStatusConfirmed {
		event.SetStatus(ics.ObjectStatusConfirmed)
	} else {
		event.SetStatus(ics.ObjectStatusTentative)
	}
	if host != nil && host.Email != "" {
		event.SetOrganizer("mailto:"+host.Email, ics.WithCN(host.FullName))
	}
	event.AddAttendee("mailto:"+b.GuestEmail, ics.WithCN(b.GuestName), ics.ParticipationStatusAccepted)

	return []byte(cal.Serialize()), nil
}

// ── 内部方法 ──

func (s *bookingService) getOwned(ctx context.Context, hostID, id string) (*model.Booking, error) {
	b, err := s.repo.Booking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	if b.UserID != hostID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// getByToken 令牌不匹配时与不存在同样处理
func (s *bookingService) getByToken(ctx context.Context, id, token string) (*model.Booking, error) {
	b, err := s.repo.Booking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	if subtle.ConstantTimeCompare([]byte(b.CancelToken), []byte(token)) != 1 {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (s *bookingService) hostLocation(ctx context.Context, hostID string) *time.Location {
	host, err := s.repo.Host.GetByID(ctx, hostID)
	if err != nil {
		return time.UTC
	}
	loc, err := loadLocation(host.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func inviteSummary(b *model.Booking, host *model.Host) string {
	title := eventTitle(b)
	if title == "" {
		title = "会议"
	}
	if host != nil && host.FullName != "" {
		return fmt.Sprintf("%s: %s 与 %s", title, host.FullName, b.GuestName)
	}
	return fmt.Sprintf("%s: %s", title, b.GuestName)
}

func eventTitle(b *model.Booking) string {
	if b.EventType != nil {
		return b.EventType.Title
	}
	return ""
}

func toBookingResponse(b *model.Booking, title string) dto.BookingResponse {
	return dto.BookingResponse{
		ID:            b.ID,
		EventTypeID:   b.EventTypeID,
		EventTitle:    title,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		GuestPhone:    b.GuestPhone,
		GuestNotes:    b.GuestNotes,
		StartTime:     formatTime(b.StartTime),
		EndTime:       formatTime(b.EndTime),
		Timezone:      b.Timezone,
		Location:      b.Location,
		Status:        b.Status,
		PriceCents:    b.PriceCents,
		Currency:      b.Currency,
		PaymentStatus: b.PaymentStatus,
		HoldExpiresAt: formatTimePtr(b.HoldExpiresAt),
		CancelledAt:   formatTimePtr(b.CancelledAt),
		CancelReason:  b.CancelReason,
		CreatedAt:     formatTime(b.CreatedAt),
	}
}
