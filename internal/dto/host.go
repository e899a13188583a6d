package dto

// ── 主机资料 DTO ──

// UpsertProfileRequest 创建或更新主机资料
type UpsertProfileRequest struct {
	Username string `json:"username"  binding:"required,min=3,max=50,slug"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Email    string `json:"email"     binding:"omitempty,email"`
	Timezone string `json:"timezone"  binding:"required,timezone"`
}

// ProfileResponse 主机资料
type ProfileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Timezone string `json:"timezone"`
}

// HostBrief 公开页面展示的主机信息
type HostBrief struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Timezone string `json:"timezone"`
}
