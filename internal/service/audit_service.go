package service

import (
	"encoding/json"
	"strconv"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/repository"

	"github.com/google/uuid"
)

// AuditService 封装审计日志的写入和查询。
// 写入是单向追加：核心流程只构造条目，不回读自己刚写的内容。
// 失败时如何处置由调用方决定：请假/层级变更属于合规关键路径，
// 写入失败要向上传播；用户管理类事件允许记日志后继续。
type AuditService interface {
	Record(action, entityType, entityID string, actorID uint, actorEmail string, details map[string]interface{}) error
	List(action, entityType string) ([]model.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// Record 构造并写入一条审计日志。details 序列化为 JSON 字符串存储，
// 序列化失败时丢弃明细但保留主体字段，不让附加信息拖垮主记录。
func (s *auditService) Record(action, entityType, entityID string, actorID uint, actorEmail string, details map[string]interface{}) error {
	if s.auditRepo == nil {
		return ErrInternal
	}
	if action == "" || entityType == "" {
		return ErrInvalidInput
	}

	detailsJSON := ""
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			detailsJSON = string(raw)
		}
	}

	entry := &model.AuditLog{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     strconv.FormatUint(uint64(actorID), 10),
		UserEmail:  actorEmail,
		Details:    detailsJSON,
	}
	return s.auditRepo.Create(entry)
}

func (s *auditService) List(action, entityType string) ([]model.AuditLog, error) {
	if s.auditRepo == nil {
		return nil, ErrInternal
	}
	return s.auditRepo.Find(action, entityType)
}
