package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Host      HostRepository
	Schedule  ScheduleRepository
	EventType EventTypeRepository
	Booking   BookingRepository
	Calendar  CalendarRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Host:      NewHostRepo(db),
		Schedule:  NewScheduleRepo(db),
		EventType: NewEventTypeRepo(db),
		Booking:   NewBookingRepo(db),
		Calendar:  NewCalendarRepo(db),
	}
}
