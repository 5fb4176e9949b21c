package model

import "time"

// 用户角色常量。ADMIN 拥有层级管理、余额管理、全量查询和审计查询权限。
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User 对应数据库中users表，是系统内的身份来源。
// 组织节点、请假申请等记录通过 UserID 关联到这里。
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(255);not null;unique" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // Hide password in json output
	Email     string    `gorm:"type:varchar(255);not null;unique" json:"email"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"fullName"`
	Role      string    `gorm:"type:enum('USER', 'ADMIN');default:'USER'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (User) TableName() string {
	return "users"
}
