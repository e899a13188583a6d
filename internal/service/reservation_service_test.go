package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/calendar"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Booking: config.BookingConfig{
			PendingHoldTTL: 15 * time.Minute,
			ReserveTimeout: 5 * time.Second,
			SlotCacheTTL:   time.Minute,
		},
	}
}

func setupTestReservationService(f *fixture, src calendar.Source, now time.Time) (*reservationService, *mockSlotCache) {
	cache := newMockSlotCache()
	busy := NewBusyService(f.repo, src, zap.NewNop())
	svc := NewReservationService(testConfig(), f.repo, busy, cache, zap.NewNop()).(*reservationService)
	svc.now = fixedNow(now)
	return svc, cache
}

func reserveReq(start time.Time, guest string) *dto.ReserveRequest {
	return &dto.ReserveRequest{
		StartTime:  start,
		GuestName:  guest,
		GuestEmail: guest + "@example.com",
		Timezone:   "Asia/Shanghai",
	}
}

// 周日中午，下周一的时段都在可预约范围内
var sundayNoon = time.Date(2024, time.January, 14, 12, 0, 0, 0, time.UTC)

// ── Reserve 测试 ──

func TestReservationService_Reserve_FreeEventConfirmed(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	svc, cache := setupTestReservationService(f, nil, sundayNoon)

	resp, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob"))
	if err != nil {
		t.Fatalf("期望预约成功，实际: %v", err)
	}
	if resp.Booking.Status != model.BookingStatusConfirmed {
		t.Errorf("免费事件期望 confirmed，实际 %s", resp.Booking.Status)
	}
	if resp.Booking.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("免费事件付款状态期望 paid，实际 %s", resp.Booking.PaymentStatus)
	}
	if resp.Booking.StartTime != "2024-01-15T10:00:00Z" || resp.Booking.EndTime != "2024-01-15T10:30:00Z" {
		t.Errorf("时间不符: %s - %s", resp.Booking.StartTime, resp.Booking.EndTime)
	}
	if resp.CancelToken == "" {
		t.Error("应返回取消令牌")
	}
	if resp.Degraded {
		t.Error("无外部来源时不应降级")
	}
	if cache.gens[testHostID] != 1 {
		t.Errorf("预约后应递增缓存代数，实际 %d", cache.gens[testHostID])
	}
}

func TestReservationService_Reserve_PaidEventPending(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	et.PriceCents = 2500
	_ = f.types.Update(context.Background(), et)
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	resp, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(9, 30), "bob"))
	if err != nil {
		t.Fatalf("期望预约成功，实际: %v", err)
	}
	if resp.Booking.Status != model.BookingStatusPending {
		t.Errorf("收费事件期望 pending，实际 %s", resp.Booking.Status)
	}
	want := sundayNoon.Add(15 * time.Minute).Format(time.RFC3339)
	if resp.Booking.HoldExpiresAt == nil || *resp.Booking.HoldExpiresAt != want {
		t.Errorf("占位到期时间期望 %s，实际 %v", want, resp.Booking.HoldExpiresAt)
	}
	if resp.Booking.PriceCents != 2500 {
		t.Errorf("金额期望 2500，实际 %d", resp.Booking.PriceCents)
	}
}

func TestReservationService_Reserve_OffGridRejected(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 15), "bob"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("非候选时刻期望 ErrSlotUnavailable，实际: %v", err)
	}
	if !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("期望 Conflict 类别，实际: %v", err)
	}
}

func TestReservationService_Reserve_SecondBookingConflicts(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob")); err != nil {
		t.Fatalf("第一次预约失败: %v", err)
	}
	_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "carol"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("重复预约期望 ErrSlotUnavailable，实际: %v", err)
	}
}

func TestReservationService_Reserve_ConcurrentSameSlot(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "guest"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, pkgerrors.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Errorf("期望 1 次成功 %d 次冲突，实际成功 %d 冲突 %d，其他错误 %v", n-1, successes, conflicts, others)
	}
	if got := f.bookings.count(model.BookingStatusConfirmed); got != 1 {
		t.Errorf("期望存储 1 条预约，实际 %d", got)
	}
	if f.bookings.maxLock != 1 {
		t.Errorf("主机锁内最大并发期望 1，实际 %d", f.bookings.maxLock)
	}
}

func TestReservationService_Reserve_ConcurrentOverlappingBuffers(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	et.BufferMinutesAfter = 15
	_ = f.types.Update(context.Background(), et)
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	// 10:00 占用到 10:45，与 10:30 开始的预约相交
	starts := []time.Time{monday(10, 0), monday(10, 30)}
	errs := make([]error, len(starts))
	var wg sync.WaitGroup
	for i, st := range starts {
		wg.Add(1)
		go func(i int, st time.Time) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), et.ID, reserveReq(st, "guest"))
		}(i, st)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrSlotUnavailable) {
			t.Errorf("期望 ErrSlotUnavailable，实际: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("相交的两个预约期望恰好 1 个成功，实际 %d", ok)
	}
}

func TestReservationService_Reserve_ExpiredHoldReleased(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	et.PriceCents = 1000
	_ = f.types.Update(context.Background(), et)
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	first, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob"))
	if err != nil {
		t.Fatalf("第一次预约失败: %v", err)
	}

	// 占位未过期时不可预约
	svc.now = fixedNow(sundayNoon.Add(10 * time.Minute))
	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "carol")); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("占位期内期望 ErrSlotUnavailable，实际: %v", err)
	}

	// 过期后时段释放，旧预约被取消
	svc.now = fixedNow(sundayNoon.Add(20 * time.Minute))
	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "carol")); err != nil {
		t.Fatalf("占位过期后期望预约成功，实际: %v", err)
	}
	old, _ := f.bookings.GetByID(context.Background(), first.Booking.ID)
	if old.Status != model.BookingStatusCancelled {
		t.Errorf("过期的占位期望 cancelled，实际 %s", old.Status)
	}
}

func TestReservationService_Reserve_MinNotice(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	et.MinNoticeHours = 24
	_ = f.types.Update(context.Background(), et)
	svc, _ := setupTestReservationService(f, nil, monday(10, 0))

	_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(11, 0), "bob"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("不满足最短提前量期望 ErrSlotUnavailable，实际: %v", err)
	}
}

func TestReservationService_Reserve_ExternalBusyBlocks(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	src := &stubBusySource{busy: []availability.Interval{{Start: monday(10, 0), End: monday(10, 30)}}}
	svc, _ := setupTestReservationService(f, src, sundayNoon)

	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob")); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("外部日历忙碌时期望 ErrSlotUnavailable，实际: %v", err)
	}
	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 30), "bob")); err != nil {
		t.Errorf("相邻时段期望预约成功，实际: %v", err)
	}
}

func TestReservationService_Reserve_ExternalFailureDegrades(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	src := &stubBusySource{err: pkgerrors.Upstream("calendar", errors.New("dial tcp: i/o timeout"))}
	svc, _ := setupTestReservationService(f, src, sundayNoon)

	resp, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob"))
	if err != nil {
		t.Fatalf("外部来源失败不应中断预约，实际: %v", err)
	}
	if !resp.Degraded {
		t.Error("期望标记为降级")
	}
}

func TestReservationService_Reserve_InactiveEventType(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	et.IsActive = false
	_ = f.types.Update(context.Background(), et)
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob"))
	if !errors.Is(err, ErrEventTypeNotFound) {
		t.Errorf("期望 ErrEventTypeNotFound，实际: %v", err)
	}
}

func TestReservationService_Reserve_InvalidTimezone(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	req := reserveReq(monday(10, 0), "bob")
	req.Timezone = "Mars/Olympus"
	_, err := svc.Reserve(context.Background(), et.ID, req)
	if !errors.Is(err, pkgerrors.ErrInput) {
		t.Errorf("期望 ErrInput，实际: %v", err)
	}
}

func TestReservationService_Reserve_NoDefaultSchedule(t *testing.T) {
	f := newFixture()
	et := f.seedHost("UTC")
	_ = f.schedules.Delete(context.Background(), "sch-1")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	_, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(10, 0), "bob"))
	if !errors.Is(err, ErrNoDefaultSchedule) {
		t.Errorf("期望 ErrNoDefaultSchedule，实际: %v", err)
	}
}

func TestReservationService_Reserve_HostTimezone(t *testing.T) {
	f := newFixture()
	et := f.seedHost("America/New_York")
	svc, _ := setupTestReservationService(f, nil, sundayNoon)

	// 纽约周一 09:00 即 14:00 UTC
	resp, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(14, 0), "bob"))
	if err != nil {
		t.Fatalf("期望预约成功，实际: %v", err)
	}
	if resp.Booking.StartTime != "2024-01-15T14:00:00Z" {
		t.Errorf("开始时间期望 14:00Z，实际 %s", resp.Booking.StartTime)
	}
	if _, err := svc.Reserve(context.Background(), et.ID, reserveReq(monday(9, 0), "bob")); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("UTC 09:00 不在纽约工作时间内，期望 ErrSlotUnavailable，实际: %v", err)
	}
}
