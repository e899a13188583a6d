package model

import "time"

// 外部日历类型
const (
	CalendarProviderGoogle = "google"
	CalendarProviderICS    = "ics"
)

// Calendar 已连接的外部日历，对应 calendars
// 仅作为忙碌时间来源，不做双向同步
type Calendar struct {
	ID                string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Provider          string     `gorm:"type:varchar(20);not null"                      json:"provider"` // google | ics
	ProviderAccountID string     `gorm:"type:varchar(255);not null"                     json:"provider_account_id"`
	AccessToken       *string    `gorm:"type:text"                                      json:"-"`
	RefreshToken      *string    `gorm:"type:text"                                      json:"-"`
	ExpiresAt         *time.Time `gorm:"type:timestamptz"                               json:"expires_at,omitempty"`
	FeedURL           *string    `gorm:"type:varchar(1000)"                             json:"feed_url,omitempty"`
	IsPrimary         bool       `gorm:"not null;default:false"                         json:"is_primary"`
	BaseModel
}

// TableName 指定表名
func (Calendar) TableName() string { return "calendars" }
