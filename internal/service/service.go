package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/calendar"
	"github.com/dix105/calendly-clone/internal/repository"
)

// SlotCache 候选时段缓存；Redis 不可用时传 nil
type SlotCache interface {
	Generation(ctx context.Context, hostID string) (int64, error)
	BumpGeneration(ctx context.Context, hostID string) error
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Host        HostService
	Schedule    ScheduleService
	EventType   EventTypeService
	Busy        BusyService
	Slot        SlotService
	Reservation ReservationService
	Booking     BookingService
	Calendar    CalendarService
	Export      ExportService
}

// NewService 创建 Service 聚合
// busySrc 为外部日历忙碌来源，可为 nil；cache 为 nil 时不缓存候选时段
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	busySrc calendar.Source,
	cache SlotCache,
	logger *zap.Logger,
) *Service {
	busy := NewBusyService(repo, busySrc, logger)
	return &Service{
		Host:        NewHostService(repo, logger),
		Schedule:    NewScheduleService(repo, cache, logger),
		EventType:   NewEventTypeService(repo, cache, logger),
		Busy:        busy,
		Slot:        NewSlotService(repo, busy, cache, cfg.Booking.SlotCacheTTL, logger),
		Reservation: NewReservationService(cfg, repo, busy, cache, logger),
		Booking:     NewBookingService(cfg, repo, cache, logger),
		Calendar:    NewCalendarService(repo, cache, logger),
		Export:      NewExportService(repo, logger),
	}
}
