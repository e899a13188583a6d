package handler

import "github.com/dix105/calendly-clone/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Profile   *ProfileHandler
	Schedule  *ScheduleHandler
	EventType *EventTypeHandler
	Slot      *SlotHandler
	Booking   *BookingHandler
	Calendar  *CalendarHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Profile:   NewProfileHandler(svc.Host),
		Schedule:  NewScheduleHandler(svc.Schedule),
		EventType: NewEventTypeHandler(svc.EventType),
		Slot:      NewSlotHandler(svc.Slot, svc.Reservation),
		Booking:   NewBookingHandler(svc.Booking),
		Calendar:  NewCalendarHandler(svc.Calendar),
		Export:    NewExportHandler(svc.Export),
	}
}
