package dto

// ── 可用时间方案 DTO ──

// WeeklySlotInput 每周窗口
type WeeklySlotInput struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=0,max=6"` // 0=周日
	StartTime string `json:"start_time"  binding:"required,clock"`
	EndTime   string `json:"end_time"    binding:"required,clock"`
}

// CreateScheduleRequest 创建方案
type CreateScheduleRequest struct {
	Name      string            `json:"name"       binding:"required,min=1,max=100"`
	Timezone  string            `json:"timezone"   binding:"required,timezone"`
	IsDefault bool              `json:"is_default"`
	Slots     []WeeklySlotInput `json:"slots"      binding:"omitempty,dive"`
}

// UpdateScheduleRequest 更新方案基本信息
type UpdateScheduleRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=1,max=100"`
	Timezone  *string `json:"timezone"   binding:"omitempty,timezone"`
	IsDefault *bool   `json:"is_default"`
	Version   int     `json:"version"    binding:"required,min=1"`
}

// ReplaceWeeklySlotsRequest 整体替换每周窗口
type ReplaceWeeklySlotsRequest struct {
	Slots []WeeklySlotInput `json:"slots" binding:"dive"`
}

// UpsertOverrideRequest 新增或覆盖日期例外
type UpsertOverrideRequest struct {
	Date          string  `json:"date"           binding:"required,datetime=2006-01-02"`
	IsUnavailable bool    `json:"is_unavailable"`
	StartTime     *string `json:"start_time"     binding:"omitempty,clock"`
	EndTime       *string `json:"end_time"       binding:"omitempty,clock"`
}

// PreviewRequest 预览某天解析结果
type PreviewRequest struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// WeeklySlotResponse 每周窗口
type WeeklySlotResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// OverrideResponse 日期例外
type OverrideResponse struct {
	Date          string  `json:"date"`
	IsUnavailable bool    `json:"is_unavailable"`
	StartTime     *string `json:"start_time,omitempty"`
	EndTime       *string `json:"end_time,omitempty"`
}

// ScheduleResponse 方案详情
type ScheduleResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Timezone  string               `json:"timezone"`
	IsDefault bool                 `json:"is_default"`
	Version   int                  `json:"version"`
	Slots     []WeeklySlotResponse `json:"slots"`
	Overrides []OverrideResponse   `json:"overrides,omitempty"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

// WindowResponse 解析后的绝对时间窗口
type WindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PreviewResponse 某天的可用窗口预览
type PreviewResponse struct {
	Date     string           `json:"date"`
	Timezone string           `json:"timezone"`
	Source   string           `json:"source"` // recurring | unavailable | custom
	Windows  []WindowResponse `json:"windows"`
}
