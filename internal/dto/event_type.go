package dto

// ── 事件类型 DTO ──

// CreateEventTypeRequest 创建事件类型
type CreateEventTypeRequest struct {
	Title               string  `json:"title"                 binding:"required,min=1,max=200"`
	Slug                string  `json:"slug"                  binding:"required,min=1,max=100,slug"`
	Description         *string `json:"description"           binding:"omitempty,max=5000"`
	DurationMinutes     int     `json:"duration_minutes"      binding:"required,min=5,max=1440"`
	LocationType        string  `json:"location_type"         binding:"omitempty,oneof=video phone in_person"`
	LocationDetails     *string `json:"location_details"      binding:"omitempty,max=500"`
	Color               string  `json:"color"                 binding:"omitempty,hexcolor"`
	BufferMinutesBefore int     `json:"buffer_minutes_before" binding:"min=0,max=720"`
	BufferMinutesAfter  int     `json:"buffer_minutes_after"  binding:"min=0,max=720"`
	MaxBookingsPerDay   *int    `json:"max_bookings_per_day"  binding:"omitempty,min=1"`
	MinNoticeHours      int     `json:"min_notice_hours"      binding:"min=0"`
	MaxDaysInAdvance    int     `json:"max_days_in_advance"   binding:"omitempty,min=1,max=730"`
	PriceCents          int     `json:"price_cents"           binding:"min=0"`
	Currency            string  `json:"currency"              binding:"omitempty,len=3"`
	ScheduleID          *string `json:"schedule_id"           binding:"omitempty,uuid"`
}

// UpdateEventTypeRequest 更新事件类型（字段为空表示不修改）
type UpdateEventTypeRequest struct {
	Title               *string `json:"title"                 binding:"omitempty,min=1,max=200"`
	Slug                *string `json:"slug"                  binding:"omitempty,min=1,max=100,slug"`
	Description         *string `json:"description"           binding:"omitempty,max=5000"`
	DurationMinutes     *int    `json:"duration_minutes"      binding:"omitempty,min=5,max=1440"`
	LocationType        *string `json:"location_type"         binding:"omitempty,oneof=video phone in_person"`
	LocationDetails     *string `json:"location_details"      binding:"omitempty,max=500"`
	Color               *string `json:"color"                 binding:"omitempty,hexcolor"`
	IsActive            *bool   `json:"is_active"`
	BufferMinutesBefore *int    `json:"buffer_minutes_before" binding:"omitempty,min=0,max=720"`
	BufferMinutesAfter  *int    `json:"buffer_minutes_after"  binding:"omitempty,min=0,max=720"`
	MaxBookingsPerDay   *int    `json:"max_bookings_per_day"  binding:"omitempty,min=0"` // 0 表示取消上限
	MinNoticeHours      *int    `json:"min_notice_hours"      binding:"omitempty,min=0"`
	MaxDaysInAdvance    *int    `json:"max_days_in_advance"   binding:"omitempty,min=1,max=730"`
	PriceCents          *int    `json:"price_cents"           binding:"omitempty,min=0"`
	Currency            *string `json:"currency"              binding:"omitempty,len=3"`
	ScheduleID          *string `json:"schedule_id"           binding:"omitempty,uuid"`
	Version             int     `json:"version"               binding:"required,min=1"`
}

// EventTypeResponse 事件类型
type EventTypeResponse struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Slug                string     `json:"slug"`
	Description         *string    `json:"description,omitempty"`
	DurationMinutes     int        `json:"duration_minutes"`
	LocationType        string     `json:"location_type"`
	LocationDetails     *string    `json:"location_details,omitempty"`
	Color               string     `json:"color"`
	IsActive            bool       `json:"is_active"`
	BufferMinutesBefore int        `json:"buffer_minutes_before"`
	BufferMinutesAfter  int        `json:"buffer_minutes_after"`
	MaxBookingsPerDay   *int       `json:"max_bookings_per_day,omitempty"`
	MinNoticeHours      int        `json:"min_notice_hours"`
	MaxDaysInAdvance    int        `json:"max_days_in_advance"`
	PriceCents          int        `json:"price_cents"`
	Currency            string     `json:"currency"`
	ScheduleID          *string    `json:"schedule_id,omitempty"`
	Version             int        `json:"version"`
	Host                *HostBrief `json:"host,omitempty"`
}
