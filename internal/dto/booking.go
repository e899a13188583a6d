package dto

import "time"

// ── 预约 DTO ──

// ReserveRequest 访客预约请求
type ReserveRequest struct {
	StartTime  time.Time `json:"start_time"  binding:"required"`
	GuestName  string    `json:"guest_name"  binding:"required,min=1,max=100"`
	GuestEmail string    `json:"guest_email" binding:"required,email"`
	GuestPhone *string   `json:"guest_phone" binding:"omitempty,max=50"`
	GuestNotes *string   `json:"guest_notes" binding:"omitempty,max=2000"`
	Timezone   string    `json:"timezone"    binding:"required,timezone"`
}

// ReservationResponse 预约结果
type ReservationResponse struct {
	Booking     BookingResponse `json:"booking"`
	CancelToken string          `json:"cancel_token"`
	Degraded    bool            `json:"degraded,omitempty"`
}

// BookingListRequest 主机预约列表查询
type BookingListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	From   string `form:"from"   binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to"     binding:"omitempty,datetime=2006-01-02"`
}

// CancelBookingRequest 取消预约
type CancelBookingRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// GuestCancelRequest 访客凭取消令牌取消
type GuestCancelRequest struct {
	Token  string  `json:"token"  binding:"required,uuid"`
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// InviteQuery 下载日历邀请
type InviteQuery struct {
	Token string `form:"token" binding:"required,uuid"`
}

// ExportBookingsRequest 导出预约
type ExportBookingsRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// BookingResponse 预约详情
type BookingResponse struct {
	ID            string  `json:"id"`
	EventTypeID   string  `json:"event_type_id"`
	EventTitle    string  `json:"event_title,omitempty"`
	GuestName     string  `json:"guest_name"`
	GuestEmail    string  `json:"guest_email"`
	GuestPhone    *string `json:"guest_phone,omitempty"`
	GuestNotes    *string `json:"guest_notes,omitempty"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Timezone      string  `json:"timezone"`
	Location      *string `json:"location,omitempty"`
	Status        string  `json:"status"`
	PriceCents    int     `json:"price_cents"`
	Currency      string  `json:"currency"`
	PaymentStatus string  `json:"payment_status"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
	CancelledAt   *string `json:"cancelled_at,omitempty"`
	CancelReason  *string `json:"cancel_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
}
