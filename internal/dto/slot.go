package dto

// ── 可预约时段 DTO ──

// SlotQuery 查询某天的候选时段
type SlotQuery struct {
	Date     string `form:"date"     binding:"required,datetime=2006-01-02"`
	Timezone string `form:"timezone" binding:"omitempty,timezone"` // 为空时使用方案时区
}

// SlotItem 单个候选时段
type SlotItem struct {
	Start string `json:"start"` // RFC3339，访客时区
	End   string `json:"end"`
}

// SlotsResponse 候选时段列表
type SlotsResponse struct {
	EventTypeID     string     `json:"event_type_id"`
	Date            string     `json:"date"`
	Timezone        string     `json:"timezone"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []SlotItem `json:"slots"`
	Degraded        bool       `json:"degraded,omitempty"` // 外部日历不可用，结果未计入外部忙碌时间
}
