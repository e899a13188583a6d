package model

// Host 主机资料表，对应 profiles
// ID 与身份服务中的用户 ID 一致
type Host struct {
	ID       string `gorm:"type:uuid;primaryKey"                  json:"id"`
	Username string `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	FullName string `gorm:"type:varchar(100);not null"            json:"full_name"`
	Email    string `gorm:"type:varchar(255)"                     json:"email,omitempty"`
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	BaseModel
}

// TableName 指定表名
func (Host) TableName() string { return "profiles" }
