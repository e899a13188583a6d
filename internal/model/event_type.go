package model

// EventType 事件类型，对应 event_types
type EventType struct {
	ID                  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID              string  `gorm:"type:uuid;not null;uniqueIndex:uq_event_slug"   json:"user_id"`
	Title               string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Slug                string  `gorm:"type:varchar(100);not null;uniqueIndex:uq_event_slug" json:"slug"`
	Description         *string `gorm:"type:text"                                      json:"description,omitempty"`
	DurationMinutes     int     `gorm:"not null"                                       json:"duration_minutes"`
	LocationType        string  `gorm:"type:varchar(20);not null;default:'video'"      json:"location_type"` // video | phone | in_person
	LocationDetails     *string `gorm:"type:varchar(500)"                              json:"location_details,omitempty"`
	Color               string  `gorm:"type:varchar(20);not null;default:'#3b82f6'"    json:"color"`
	IsActive            bool    `gorm:"not null;default:true"                          json:"is_active"`
	BufferMinutesBefore int     `gorm:"not null;default:0"                             json:"buffer_minutes_before"`
	BufferMinutesAfter  int     `gorm:"not null;default:0"                             json:"buffer_minutes_after"`
	MaxBookingsPerDay   *int    `json:"max_bookings_per_day,omitempty"`
	MinNoticeHours      int     `gorm:"not null;default:0"                             json:"min_notice_hours"`
	MaxDaysInAdvance    int     `gorm:"not null;default:60"                            json:"max_days_in_advance"`
	PriceCents          int     `gorm:"not null;default:0"                             json:"price_cents"`
	Currency            string  `gorm:"type:varchar(3);not null;default:'USD'"         json:"currency"`
	ScheduleID          *string `gorm:"type:uuid"                                      json:"schedule_id,omitempty"` // NULL 表示使用默认方案
	VersionedModel

	// 关联
	Host *Host `gorm:"foreignKey:UserID;references:ID" json:"host,omitempty"`
}

// TableName 指定表名
func (EventType) TableName() string { return "event_types" }

// IsPaid 是否需要付款
func (e *EventType) IsPaid() bool { return e.PriceCents > 0 }
