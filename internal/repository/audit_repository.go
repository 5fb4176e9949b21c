package repository

import (
	"fmt"
	"hr_vacation_go/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 定义审计日志的持久化操作接口。
// 日志只追加不修改，核心流程也不依赖回读自己刚写入的内容。
type AuditRepository interface {
	Create(entry *model.AuditLog) error
	// Find 按动作和实体类型过滤，空串表示不过滤该维度；按创建时间倒序。
	Find(action, entityType string) ([]model.AuditLog, error)
}

// auditRepository 审计日志仓库实现
type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *model.AuditLog) error {
	if entry == nil {
		return fmt.Errorf("audit log entry is nil")
	}
	if entry.ID == "" {
		return fmt.Errorf("audit log id is required")
	}
	return r.db.Create(entry).Error
}

func (r *auditRepository) Find(action, entityType string) ([]model.AuditLog, error) {
	tx := r.db.Order("created_at DESC")
	if action != "" {
		tx = tx.Where("action = ?", action)
	}
	if entityType != "" {
		tx = tx.Where("entity_type = ?", entityType)
	}

	var logs []model.AuditLog
	if err := tx.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
