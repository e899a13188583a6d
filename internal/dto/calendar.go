package dto

import "time"

// ── 外部日历 DTO ──

// ConnectCalendarRequest 连接外部日历
// provider=google 时需要 access_token；provider=ics 时需要 feed_url
type ConnectCalendarRequest struct {
	Provider          string     `json:"provider"            binding:"required,oneof=google ics"`
	ProviderAccountID string     `json:"provider_account_id" binding:"required,max=255"`
	AccessToken       *string    `json:"access_token"        binding:"required_if=Provider google"`
	RefreshToken      *string    `json:"refresh_token"`
	ExpiresAt         *time.Time `json:"expires_at"`
	FeedURL           *string    `json:"feed_url"            binding:"required_if=Provider ics,omitempty,url"`
	IsPrimary         bool       `json:"is_primary"`
}

// CalendarResponse 已连接日历
type CalendarResponse struct {
	ID                string  `json:"id"`
	Provider          string  `json:"provider"`
	ProviderAccountID string  `json:"provider_account_id"`
	FeedURL           *string `json:"feed_url,omitempty"`
	IsPrimary         bool    `json:"is_primary"`
	CreatedAt         string  `json:"created_at"`
}
