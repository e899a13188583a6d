//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	"github.com/dix105/calendly-clone/pkg/database"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=calendly password=calendly_password dbname=calendly_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用正式迁移建表，排他约束随之生效
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建主机与事件类型并返回清理函数
func setupTestData(t *testing.T) (host *model.Host, et *model.EventType, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	host = &model.Host{
		ID:       uuid.NewString(),
		Username: fmt.Sprintf("host%d", time.Now().UnixNano()),
		FullName: "测试主机",
		Timezone: "UTC",
	}
	if err := repo.Host.Upsert(ctx, host); err != nil {
		t.Fatalf("创建主机失败: %v", err)
	}

	et = &model.EventType{
		UserID:          host.ID,
		Title:           "咨询",
		Slug:            "consult",
		DurationMinutes: 30,
		LocationType:    "video",
		Color:           "#3b82f6",
		IsActive:        true,
		Currency:        "USD",
	}
	if err := repo.EventType.Create(ctx, et); err != nil {
		t.Fatalf("创建事件类型失败: %v", err)
	}

	cleanup = func() {
		testDB.Exec("DELETE FROM bookings WHERE user_id = ?", host.ID)
		testDB.Exec("DELETE FROM event_types WHERE user_id = ?", host.ID)
		testDB.Exec("DELETE FROM availability_schedules WHERE user_id = ?", host.ID)
		testDB.Exec("DELETE FROM calendars WHERE user_id = ?", host.ID)
		testDB.Exec("DELETE FROM profiles WHERE id = ?", host.ID)
	}
	return
}

func newBooking(host *model.Host, et *model.EventType, start time.Time, status string, hold *time.Time) *model.Booking {
	end := start.Add(time.Duration(et.DurationMinutes) * time.Minute)
	return &model.Booking{
		EventTypeID:   et.ID,
		UserID:        host.ID,
		GuestName:     "访客",
		GuestEmail:    "guest@example.com",
		StartTime:     start,
		EndTime:       end,
		BlockedStart:  start,
		BlockedEnd:    end,
		Timezone:      "UTC",
		Status:        status,
		Currency:      "USD",
		PaymentStatus: model.PaymentStatusPaid,
		HoldExpiresAt: hold,
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 预约不重叠
// ═══════════════════════════════════════════════════════════

func TestBooking_CreateIfNoOverlap(t *testing.T) {
	host, et, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC()
	start := now.Add(48 * time.Hour).Truncate(time.Hour)

	first := newBooking(host, et, start, model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, first, now); err != nil {
		t.Fatalf("创建预约失败: %v", err)
	}
	if first.CancelToken == "" {
		t.Error("期望数据库生成取消令牌")
	}

	// 部分重叠
	second := newBooking(host, et, start.Add(15*time.Minute), model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, second, now); !errors.Is(err, repository.ErrBookingOverlap) {
		t.Fatalf("期望 ErrBookingOverlap，实际: %v", err)
	}

	// 首尾相接不算重叠
	adjacent := newBooking(host, et, start.Add(30*time.Minute), model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, adjacent, now); err != nil {
		t.Fatalf("相邻预约期望成功，实际: %v", err)
	}
}

func TestBooking_CancelledFreesSlot(t *testing.T) {
	host, et, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC()
	start := now.Add(72 * time.Hour).Truncate(time.Hour)

	b := newBooking(host, et, start, model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, b, now); err != nil {
		t.Fatalf("创建预约失败: %v", err)
	}
	if err := repo.Booking.Transition(ctx, b.ID, []string{model.BookingStatusConfirmed}, map[string]interface{}{
		"status":       model.BookingStatusCancelled,
		"cancelled_at": now,
	}); err != nil {
		t.Fatalf("取消失败: %v", err)
	}

	// 状态已变化，再次流转应失败
	err := repo.Booking.Transition(ctx, b.ID, []string{model.BookingStatusConfirmed}, map[string]interface{}{
		"status": model.BookingStatusCancelled,
	})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	again := newBooking(host, et, start, model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, again, now); err != nil {
		t.Fatalf("取消后同一时段期望可再次预约，实际: %v", err)
	}
}

func TestBooking_ExpiredHold(t *testing.T) {
	host, et, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC()
	start := now.Add(96 * time.Hour).Truncate(time.Hour)

	hold := now.Add(-time.Minute)
	pending := newBooking(host, et, start, model.BookingStatusPending, &hold)
	pending.PaymentStatus = model.PaymentStatusPending
	if err := testDB.WithContext(ctx).Create(pending).Error; err != nil {
		t.Fatalf("创建待付款预约失败: %v", err)
	}

	active, err := repo.Booking.ListActiveInRange(ctx, host.ID, start.Add(-time.Hour), start.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("过期占位不应视为有效预约，实际 %d 条", len(active))
	}

	expired, err := repo.Booking.ExpireStaleHolds(ctx, host.ID, now)
	if err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != pending.ID {
		t.Fatalf("期望清理 1 条，实际 %+v", expired)
	}

	got, err := repo.Booking.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got.Status != model.BookingStatusCancelled || got.CancelledAt == nil {
		t.Errorf("期望已取消，实际 %s", got.Status)
	}

	b := newBooking(host, et, start, model.BookingStatusConfirmed, nil)
	if err := repo.Booking.CreateIfNoOverlap(ctx, b, now); err != nil {
		t.Fatalf("清理后期望可预约，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 主机级锁下并发预约
// ═══════════════════════════════════════════════════════════

func TestBooking_ConcurrentReserve(t *testing.T) {
	host, et, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC()
	start := now.Add(120 * time.Hour).Truncate(time.Hour)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		overlaps  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Booking.WithHostLock(ctx, host.ID, func(tx repository.BookingRepository) error {
				return tx.CreateIfNoOverlap(ctx, newBooking(host, et, start, model.BookingStatusConfirmed, nil), now)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrBookingOverlap):
				overlaps++
			default:
				t.Errorf("非预期错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || overlaps != workers-1 {
		t.Errorf("期望 1 个成功、%d 个冲突，实际 %d、%d", workers-1, succeeded, overlaps)
	}

	n, err := repo.Booking.CountActiveForEventType(ctx, et.ID, start, start.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("计数失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望 1 条有效预约，实际 %d", n)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 乐观锁与默认方案
// ═══════════════════════════════════════════════════════════

func TestEventType_OptimisticLock(t *testing.T) {
	_, et, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	stale := *et
	et.Title = "新标题"
	if err := repo.EventType.Update(ctx, et); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if et.Version != stale.Version+1 {
		t.Errorf("期望版本 %d，实际 %d", stale.Version+1, et.Version)
	}

	stale.Title = "过期写入"
	if err := repo.EventType.Update(ctx, &stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestSchedule_SingleDefault(t *testing.T) {
	host, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	a := &model.AvailabilitySchedule{UserID: host.ID, Name: "A", Timezone: "UTC", IsDefault: true}
	if err := repo.Schedule.Create(ctx, a); err != nil {
		t.Fatalf("创建方案失败: %v", err)
	}
	if err := repo.Schedule.ReplaceWeeklySlots(ctx, a.ID, []model.WeeklySlot{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"},
	}); err != nil {
		t.Fatalf("写入每周窗口失败: %v", err)
	}

	b := &model.AvailabilitySchedule{UserID: host.ID, Name: "B", Timezone: "UTC", IsDefault: true}
	if err := repo.Schedule.Create(ctx, b); err != nil {
		t.Fatalf("创建方案失败: %v", err)
	}

	def, err := repo.Schedule.GetDefault(ctx, host.ID)
	if err != nil {
		t.Fatalf("查询默认方案失败: %v", err)
	}
	if def.ID != b.ID {
		t.Errorf("期望默认方案为 B，实际 %s", def.Name)
	}

	got, err := repo.Schedule.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("查询方案失败: %v", err)
	}
	if got.IsDefault || len(got.Slots) != 1 {
		t.Errorf("方案 A 应取消默认并保留 1 个窗口，实际 %+v", got)
	}
}
