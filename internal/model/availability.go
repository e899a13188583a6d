package model

import "time"

// AvailabilitySchedule 可用时间方案，对应 availability_schedules
// 每个主机可有多个方案，至多一个默认方案
type AvailabilitySchedule struct {
	ID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Timezone  string `gorm:"type:varchar(64);not null"                      json:"timezone"`
	IsDefault bool   `gorm:"not null;default:false"                         json:"is_default"`
	VersionedModel

	// 关联
	Slots     []WeeklySlot   `gorm:"foreignKey:ScheduleID" json:"slots,omitempty"`
	Overrides []DateOverride `gorm:"foreignKey:ScheduleID" json:"overrides,omitempty"`
}

// TableName 指定表名
func (AvailabilitySchedule) TableName() string { return "availability_schedules" }

// WeeklySlot 每周重复的可用窗口，对应 availability_slots
type WeeklySlot struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ScheduleID string    `gorm:"type:uuid;not null;index"                       json:"schedule_id"`
	DayOfWeek  int       `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0-6，周日为 0
	StartTime  string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime    string    `gorm:"type:time;not null"                             json:"end_time"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (WeeklySlot) TableName() string { return "availability_slots" }

// DateOverride 日期例外，对应 date_overrides
// IsUnavailable 为 true 时 StartTime/EndTime 为空
type DateOverride struct {
	ID            string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ScheduleID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_override_date" json:"schedule_id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uq_override_date" json:"date"`
	IsUnavailable bool      `gorm:"not null;default:false"                          json:"is_unavailable"`
	StartTime     *string   `gorm:"type:time"                                       json:"start_time,omitempty"`
	EndTime       *string   `gorm:"type:time"                                       json:"end_time,omitempty"`
	BaseModel
}

// TableName 指定表名
func (DateOverride) TableName() string { return "date_overrides" }
