package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

var errUniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

// ── Mock HostRepository ──

type mockHostRepo struct {
	mu    sync.Mutex
	hosts map[string]*model.Host
}

func newMockHostRepo() *mockHostRepo {
	return &mockHostRepo{hosts: make(map[string]*model.Host)}
}

func (m *mockHostRepo) GetByID(_ context.Context, id string) (*model.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hosts[id]; ok {
		cp := *h
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHostRepo) GetByUsername(_ context.Context, username string) (*model.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hosts {
		if h.Username == username {
			cp := *h
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHostRepo) Upsert(_ context.Context, host *model.Host) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range m.hosts {
		if id != host.ID && h.Username == host.Username {
			return errUniqueViolation
		}
	}
	cp := *host
	m.hosts[host.ID] = &cp
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	mu        sync.Mutex
	seq       int
	schedules map[string]*model.AvailabilitySchedule
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.AvailabilitySchedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.AvailabilitySchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if schedule.ID == "" {
		m.seq++
		schedule.ID = fmt.Sprintf("sch-%d", m.seq)
	}
	if schedule.IsDefault {
		m.clearDefault(schedule.UserID, schedule.ID)
	}
	if schedule.Version == 0 {
		schedule.Version = 1
	}
	for i := range schedule.Slots {
		schedule.Slots[i].ScheduleID = schedule.ID
	}
	cp := *schedule
	m.schedules[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.AvailabilitySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[id]; ok {
		cp := *s
		cp.Slots = append([]model.WeeklySlot(nil), s.Slots...)
		cp.Overrides = append([]model.DateOverride(nil), s.Overrides...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) GetDefault(ctx context.Context, userID string) (*model.AvailabilitySchedule, error) {
	m.mu.Lock()
	var id string
	for _, s := range m.schedules {
		if s.UserID == userID && s.IsDefault {
			id = s.ID
		}
	}
	m.mu.Unlock()
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockScheduleRepo) ListByUser(_ context.Context, userID string) ([]model.AvailabilitySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.AvailabilitySchedule
	for _, s := range m.schedules {
		if s.UserID == userID {
			list = append(list, *s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, schedule *model.AvailabilitySchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.schedules[schedule.ID]
	if !ok || cur.Version != schedule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if schedule.IsDefault {
		m.clearDefault(schedule.UserID, schedule.ID)
	}
	cur.Name = schedule.Name
	cur.Timezone = schedule.Timezone
	cur.IsDefault = schedule.IsDefault
	cur.Version++
	schedule.Version = cur.Version
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *mockScheduleRepo) ReplaceWeeklySlots(_ context.Context, scheduleID string, slots []model.WeeklySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[scheduleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range slots {
		slots[i].ScheduleID = scheduleID
	}
	s.Slots = append([]model.WeeklySlot(nil), slots...)
	return nil
}

func (m *mockScheduleRepo) UpsertOverride(_ context.Context, override *model.DateOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[override.ScheduleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range s.Overrides {
		if s.Overrides[i].Date.Equal(override.Date) {
			s.Overrides[i] = *override
			return nil
		}
	}
	s.Overrides = append(s.Overrides, *override)
	return nil
}

func (m *mockScheduleRepo) DeleteOverride(_ context.Context, scheduleID string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[scheduleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range s.Overrides {
		if s.Overrides[i].Date.Equal(date) {
			s.Overrides = append(s.Overrides[:i], s.Overrides[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) clearDefault(userID, exceptID string) {
	for id, s := range m.schedules {
		if s.UserID == userID && id != exceptID {
			s.IsDefault = false
		}
	}
}

// ── Mock EventTypeRepository ──

type mockEventTypeRepo struct {
	mu    sync.Mutex
	seq   int
	types map[string]*model.EventType
	hosts *mockHostRepo
}

func newMockEventTypeRepo(hosts *mockHostRepo) *mockEventTypeRepo {
	return &mockEventTypeRepo{types: make(map[string]*model.EventType), hosts: hosts}
}

func (m *mockEventTypeRepo) Create(_ context.Context, et *model.EventType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.types {
		if e.UserID == et.UserID && e.Slug == et.Slug {
			return errUniqueViolation
		}
	}
	if et.ID == "" {
		m.seq++
		et.ID = fmt.Sprintf("et-%d", m.seq)
	}
	if et.Version == 0 {
		et.Version = 1
	}
	cp := *et
	m.types[et.ID] = &cp
	return nil
}

func (m *mockEventTypeRepo) GetByID(ctx context.Context, id string) (*model.EventType, error) {
	m.mu.Lock()
	e, ok := m.types[id]
	var cp model.EventType
	if ok {
		cp = *e
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if m.hosts != nil {
		if h, err := m.hosts.GetByID(ctx, cp.UserID); err == nil {
			cp.Host = h
		}
	}
	return &cp, nil
}

func (m *mockEventTypeRepo) GetBySlug(ctx context.Context, userID, slug string) (*model.EventType, error) {
	m.mu.Lock()
	var id string
	for _, e := range m.types {
		if e.UserID == userID && e.Slug == slug {
			id = e.ID
		}
	}
	m.mu.Unlock()
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockEventTypeRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]model.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.EventType
	for _, e := range m.types {
		if e.UserID == userID && (!activeOnly || e.IsActive) {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockEventTypeRepo) Update(_ context.Context, et *model.EventType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.types[et.ID]
	if !ok || cur.Version != et.Version {
		return pkgerrors.ErrOptimisticLock
	}
	for id, e := range m.types {
		if id != et.ID && e.UserID == et.UserID && e.Slug == et.Slug {
			return errUniqueViolation
		}
	}
	et.Version++
	cp := *et
	cp.Host = nil
	m.types[et.ID] = &cp
	return nil
}

func (m *mockEventTypeRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.types, id)
	return nil
}

func (m *mockEventTypeRepo) CountBySchedule(_ context.Context, scheduleID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.types {
		if e.ScheduleID != nil && *e.ScheduleID == scheduleID {
			n++
		}
	}
	return n, nil
}

// ── Mock BookingRepository ──

type mockBookingRepo struct {
	mu       sync.Mutex
	hostLock sync.Mutex
	seq      int
	bookings map[string]*model.Booking
	types    *mockEventTypeRepo

	// 记录 WithHostLock 内的最大并发数
	inLock  int
	maxLock int
}

func newMockBookingRepo(types *mockEventTypeRepo) *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*model.Booking), types: types}
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	b, ok := m.bookings[id]
	var cp model.Booking
	if ok {
		cp = *b
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if m.types != nil {
		if et, err := m.types.GetByID(ctx, cp.EventTypeID); err == nil {
			cp.EventType = et
		}
	}
	return &cp, nil
}

func (m *mockBookingRepo) List(_ context.Context, filter repository.BookingFilter) ([]model.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Booking
	for _, b := range m.bookings {
		if b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.From != nil && b.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !b.StartTime.Before(*filter.To) {
			continue
		}
		list = append(list, *b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	total := int64(len(list))
	if filter.Limit > 0 {
		if filter.Offset >= len(list) {
			return nil, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(list) {
			end = len(list)
		}
		list = list[filter.Offset:end]
	}
	if m.types != nil {
		for i := range list {
			if et, err := m.types.GetByID(context.Background(), list[i].EventTypeID); err == nil {
				list[i].EventType = et
			}
		}
	}
	return list, total, nil
}

func (m *mockBookingRepo) ListActiveInRange(_ context.Context, userID string, from, to, now time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rng := availability.Interval{Start: from, End: to}
	var list []model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID && b.IsActive(now) &&
			rng.Overlaps(availability.Interval{Start: b.BlockedStart, End: b.BlockedEnd}) {
			list = append(list, *b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].BlockedStart.Before(list[j].BlockedStart) })
	return list, nil
}

func (m *mockBookingRepo) CountActiveForEventType(_ context.Context, eventTypeID string, from, to, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.EventTypeID == eventTypeID && b.IsActive(now) &&
			!b.StartTime.Before(from) && b.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepo) CreateIfNoOverlap(_ context.Context, booking *model.Booking, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blocked := availability.Interval{Start: booking.BlockedStart, End: booking.BlockedEnd}
	for _, b := range m.bookings {
		if b.UserID == booking.UserID && b.IsActive(now) &&
			blocked.Overlaps(availability.Interval{Start: b.BlockedStart, End: b.BlockedEnd}) {
			return repository.ErrBookingOverlap
		}
	}
	if booking.ID == "" {
		m.seq++
		booking.ID = fmt.Sprintf("bk-%d", m.seq)
	}
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m *mockBookingRepo) Transition(_ context.Context, id string, from []string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return pkgerrors.ErrOptimisticLock
	}
	allowed := false
	for _, s := range from {
		if b.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return pkgerrors.ErrOptimisticLock
	}
	for k, v := range updates {
		switch k {
		case "status":
			b.Status = v.(string)
		case "payment_status":
			b.PaymentStatus = v.(string)
		case "hold_expires_at":
			b.HoldExpiresAt = nil
		case "cancelled_at":
			t := v.(time.Time)
			b.CancelledAt = &t
		case "cancel_reason":
			b.CancelReason = v.(*string)
		}
	}
	return nil
}

func (m *mockBookingRepo) ExpireStaleHolds(_ context.Context, userID string, now time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []model.Booking
	for _, b := range m.bookings {
		if userID != "" && b.UserID != userID {
			continue
		}
		if b.Status == model.BookingStatusPending && b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now) {
			b.Status = model.BookingStatusCancelled
			t := now
			b.CancelledAt = &t
			expired = append(expired, model.Booking{ID: b.ID, UserID: b.UserID})
		}
	}
	return expired, nil
}

func (m *mockBookingRepo) WithHostLock(_ context.Context, _ string, fn func(tx repository.BookingRepository) error) error {
	m.hostLock.Lock()
	defer m.hostLock.Unlock()

	m.mu.Lock()
	m.inLock++
	if m.inLock > m.maxLock {
		m.maxLock = m.inLock
	}
	m.mu.Unlock()

	err := fn(m)

	m.mu.Lock()
	m.inLock--
	m.mu.Unlock()
	return err
}

func (m *mockBookingRepo) count(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.Status == status {
			n++
		}
	}
	return n
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	mu   sync.Mutex
	seq  int
	cals map[string]*model.Calendar
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{cals: make(map[string]*model.Calendar)}
}

func (m *mockCalendarRepo) Create(_ context.Context, cal *model.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cal.ID == "" {
		m.seq++
		cal.ID = fmt.Sprintf("cal-%d", m.seq)
	}
	cp := *cal
	m.cals[cal.ID] = &cp
	return nil
}

func (m *mockCalendarRepo) ListByUser(_ context.Context, userID string) ([]model.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Calendar
	for _, c := range m.cals {
		if c.UserID == userID {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockCalendarRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cals[id]
	if !ok || c.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(m.cals, id)
	return nil
}

// ── Mock SlotCache ──

type mockSlotCache struct {
	mu      sync.Mutex
	gens    map[string]int64
	entries map[string][]byte
	sets    int
}

func newMockSlotCache() *mockSlotCache {
	return &mockSlotCache{gens: make(map[string]int64), entries: make(map[string][]byte)}
}

func (c *mockSlotCache) Generation(_ context.Context, hostID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[hostID], nil
}

func (c *mockSlotCache) BumpGeneration(_ context.Context, hostID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[hostID]++
	return nil
}

func (c *mockSlotCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mockSlotCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	c.sets++
	return nil
}

// ── Stub 外部忙碌来源 ──

type stubBusySource struct {
	mu    sync.Mutex
	busy  []availability.Interval
	err   error
	calls int
}

func (s *stubBusySource) FetchBusy(_ context.Context, _ string, rng availability.Interval) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []availability.Interval
	for _, b := range s.busy {
		if clipped, ok := availability.Intersect(b, rng); ok {
			out = append(out, clipped)
		}
	}
	return out, s.err
}

// ── 测试夹具 ──

type fixture struct {
	repo      *repository.Repository
	hosts     *mockHostRepo
	schedules *mockScheduleRepo
	types     *mockEventTypeRepo
	bookings  *mockBookingRepo
	calendars *mockCalendarRepo
}

func newFixture() *fixture {
	hosts := newMockHostRepo()
	types := newMockEventTypeRepo(hosts)
	f := &fixture{
		hosts:     hosts,
		schedules: newMockScheduleRepo(),
		types:     types,
		bookings:  newMockBookingRepo(types),
		calendars: newMockCalendarRepo(),
	}
	f.repo = &repository.Repository{
		Host:      f.hosts,
		Schedule:  f.schedules,
		EventType: f.types,
		Booking:   f.bookings,
		Calendar:  f.calendars,
	}
	return f
}

const testHostID = "host-1"

// seedHost 主机 host-1（UTC），默认方案周一 09:00-12:00，30 分钟免费事件 et-1
func (f *fixture) seedHost(tz string) *model.EventType {
	_ = f.hosts.Upsert(context.Background(), &model.Host{
		ID: testHostID, Username: "alice", FullName: "Alice", Email: "alice@example.com", Timezone: tz,
	})
	_ = f.schedules.Create(context.Background(), &model.AvailabilitySchedule{
		UserID:    testHostID,
		Name:      "工作时间",
		Timezone:  tz,
		IsDefault: true,
		Slots: []model.WeeklySlot{
			{DayOfWeek: int(time.Monday), StartTime: "09:00:00", EndTime: "12:00:00"},
		},
	})
	et := &model.EventType{
		UserID:           testHostID,
		Title:            "30 分钟会议",
		Slug:             "intro",
		DurationMinutes:  30,
		LocationType:     "video",
		Color:            "#3b82f6",
		IsActive:         true,
		MaxDaysInAdvance: 60,
		Currency:         "USD",
	}
	_ = f.types.Create(context.Background(), et)
	return et
}

// 2024-01-15 是周一
func monday(h, m int) time.Time {
	return time.Date(2024, time.January, 15, h, m, 0, 0, time.UTC)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
