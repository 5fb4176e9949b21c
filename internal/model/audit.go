package model

import "time"

// 审计动作常量，与实体类型一起构成审计日志的过滤维度。
const (
	AuditActionRequestCreated   = "REQUEST_CREATED"
	AuditActionRequestApproved  = "REQUEST_APPROVED"
	AuditActionRequestRejected  = "REQUEST_REJECTED"
	AuditActionRequestCancelled = "REQUEST_CANCELLED"
	AuditActionBalanceCreated   = "BALANCE_CREATED"
	AuditActionBalanceUpdated   = "BALANCE_UPDATED"
	AuditActionHierarchyCreated = "HIERARCHY_CREATED"
	AuditActionHierarchyUpdated = "HIERARCHY_UPDATED"
	AuditActionHierarchyDeleted = "HIERARCHY_DELETED"
	AuditActionUserCreated      = "USER_CREATED"
)

// 审计实体类型常量。
const (
	AuditEntityVacationRequest = "VacationRequest"
	AuditEntityVacationBalance = "VacationBalance"
	AuditEntityOrganization    = "OrganizationNode"
	AuditEntityUser            = "User"
)

// AuditLog 对应数据库中 audit_logs 表，只追加不修改。
// Details 是自由格式的键值对，序列化为 JSON 字符串存储。
type AuditLog struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(64);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(64);not null;index" json:"entityType"`
	EntityID   string    `gorm:"type:varchar(64);not null" json:"entityId"`
	UserID     string    `gorm:"type:varchar(64);not null" json:"userId"`
	UserEmail  string    `gorm:"type:varchar(255);not null" json:"userEmail"`
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定 GORM 使用的表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
