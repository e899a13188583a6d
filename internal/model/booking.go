package model

import "time"

// 预约状态
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// 付款状态
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Booking 预约，对应 bookings
// BlockedStart/BlockedEnd 为创建时按事件类型缓冲扩展后的占用区间，
// 有效预约（confirmed 或未过期的 pending）之间不允许相交。
type Booking struct {
	ID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventTypeID   string     `gorm:"type:uuid;not null;index"                       json:"event_type_id"`
	UserID        string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	GuestName     string     `gorm:"type:varchar(100);not null"                     json:"guest_name"`
	GuestEmail    string     `gorm:"type:varchar(255);not null"                     json:"guest_email"`
	GuestPhone    *string    `gorm:"type:varchar(50)"                               json:"guest_phone,omitempty"`
	GuestNotes    *string    `gorm:"type:text"                                      json:"guest_notes,omitempty"`
	StartTime     time.Time  `gorm:"type:timestamptz;not null"                      json:"start_time"`
	EndTime       time.Time  `gorm:"type:timestamptz;not null"                      json:"end_time"`
	BlockedStart  time.Time  `gorm:"type:timestamptz;not null"                      json:"-"`
	BlockedEnd    time.Time  `gorm:"type:timestamptz;not null"                      json:"-"`
	Timezone      string     `gorm:"type:varchar(64);not null"                      json:"timezone"`
	Location      *string    `gorm:"type:varchar(500)"                              json:"location,omitempty"`
	MeetLink      *string    `gorm:"type:varchar(500)"                              json:"meet_link,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	PriceCents    int        `gorm:"not null;default:0"                             json:"price_cents"`
	Currency      string     `gorm:"type:varchar(3);not null;default:'USD'"         json:"currency"`
	PaymentStatus string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"payment_status"`
	HoldExpiresAt *time.Time `gorm:"type:timestamptz"                               json:"hold_expires_at,omitempty"`
	CancelToken   string     `gorm:"type:uuid;not null;default:gen_random_uuid()"   json:"-"`
	CancelledAt   *time.Time `gorm:"type:timestamptz"                               json:"cancelled_at,omitempty"`
	CancelReason  *string    `gorm:"type:varchar(500)"                              json:"cancel_reason,omitempty"`

	// 外部协作方的不透明字段
	StripePaymentIntentID   *string `gorm:"type:varchar(255)" json:"stripe_payment_intent_id,omitempty"`
	StripeCheckoutSessionID *string `gorm:"type:varchar(255)" json:"stripe_checkout_session_id,omitempty"`
	GoogleCalendarEventID   *string `gorm:"type:varchar(255)" json:"google_calendar_event_id,omitempty"`
	BaseModel

	// 关联
	EventType *EventType `gorm:"foreignKey:EventTypeID;references:ID" json:"event_type,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }

// IsActive 是否仍占用时间（已确认，或待付款且占位未过期）
func (b *Booking) IsActive(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed:
		return true
	case BookingStatusPending:
		return b.HoldExpiresAt == nil || b.HoldExpiresAt.After(now)
	default:
		return false
	}
}
