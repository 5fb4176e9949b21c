package service

import (
	"errors"
	"fmt"
	"strings"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationService 封装组织层级领域逻辑（层级管理器）。
// 设计目标：
// 1. Handler 不直接操作 Repository，避免协议层混入业务规则。
// 2. 统一错误语义，把底层 gorm/repository 错误转换为 service 哨兵错误。
// 3. 聚合环检测、层级级联重算、树构建等"非纯 CRUD"的业务逻辑。
//
// 整片森林必须保持无环：每次改挂上级时同步做子树遍历检测，
// 不接受任何最终一致的窗口。检测本身是"读后写"序列，
// 与真正的写入不在同一个原子单元内：并发改挂理论上仍可能在
// 检测和写入之间引入环，这里沿用原始设计的取舍，不做全局锁。
type OrganizationService interface {
	CreateNode(userID uint, userEmail, userName, position, department, supervisorID string, actorID uint, actorEmail string) (*model.OrganizationNode, error)
	UpdateNode(nodeID, position, department string, actorID uint, actorEmail string) (*model.OrganizationNode, error)
	DeleteNode(nodeID string, actorID uint, actorEmail string) error
	GetNode(nodeID string) (*model.OrganizationNode, error)
	GetNodeByUserID(userID uint) (*model.OrganizationNode, error)
	// GetSubordinates 只返回直接下属（一层），不含传递下属。
	GetSubordinates(nodeID string) ([]model.OrganizationNode, error)
	// GetTree 返回平铺列表和按上级引用组装的森林。
	GetTree() ([]model.OrganizationNode, []*model.OrganizationTreeNode, error)
	AssignSupervisor(nodeID, supervisorID string, actorID uint, actorEmail string) (*model.OrganizationNode, error)
}

type organizationService struct {
	orgRepo repository.OrganizationRepository
	audit   AuditService
}

func NewOrganizationService(orgRepo repository.OrganizationRepository, audit AuditService) OrganizationService {
	return &organizationService{orgRepo: orgRepo, audit: audit}
}

// CreateNode 为员工创建组织节点。
// 关键规则：
// 1. 每个用户最多一个节点，重复创建报 ErrNodeAlreadyExists。
// 2. 指定上级时上级必须存在，层级 = 上级层级 + 1；不指定则为根（层级 0）。
// 3. 层级变更属于合规关键路径，审计写入失败向上传播。
func (s *organizationService) CreateNode(userID uint, userEmail, userName, position, department, supervisorID string, actorID uint, actorEmail string) (*model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}

	userEmail = strings.TrimSpace(userEmail)
	userName = strings.TrimSpace(userName)
	position = strings.TrimSpace(position)
	department = strings.TrimSpace(department)
	if userID == 0 || userEmail == "" || userName == "" || position == "" || department == "" {
		return nil, ErrInvalidInput
	}

	// 先检查该用户是否已有节点，避免数据库唯一键报错直接外泄。
	_, err := s.orgRepo.FindByUserID(userID)
	if err == nil {
		return nil, ErrNodeAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	level := 0
	supervisorID = strings.TrimSpace(supervisorID)
	if supervisorID == "" || supervisorID == model.RootSupervisor {
		supervisorID = model.RootSupervisor
	} else {
		supervisor, err := s.orgRepo.FindByID(supervisorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSupervisorNotFound
			}
			return nil, err
		}
		level = supervisor.Level + 1
	}

	node := &model.OrganizationNode{
		ID:           uuid.NewString(),
		UserID:       userID,
		UserEmail:    userEmail,
		UserName:     userName,
		SupervisorID: supervisorID,
		Position:     position,
		Department:   department,
		Level:        level,
	}
	if err := s.orgRepo.Create(node); err != nil {
		return nil, err
	}

	if err := s.recordAudit(model.AuditActionHierarchyCreated, node.ID, actorID, actorEmail, map[string]interface{}{
		"userId":     userID,
		"position":   position,
		"department": department,
	}); err != nil {
		return nil, err
	}
	return node, nil
}

// UpdateNode 更新节点的职位和部门（不动层级关系）。
func (s *organizationService) UpdateNode(nodeID, position, department string, actorID uint, actorEmail string) (*model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}

	nodeID = strings.TrimSpace(nodeID)
	position = strings.TrimSpace(position)
	department = strings.TrimSpace(department)
	if nodeID == "" || position == "" || department == "" {
		return nil, ErrInvalidInput
	}

	node, err := s.GetNode(nodeID)
	if err != nil {
		return nil, err
	}

	node.Position = position
	node.Department = department
	if err := s.orgRepo.Update(node); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	if err := s.recordAudit(model.AuditActionHierarchyUpdated, node.ID, actorID, actorEmail, map[string]interface{}{
		"position":   position,
		"department": department,
	}); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode 执行保护删除。
// 节点还有直接下属时返回 ErrNodeHasSubordinates，必须先改挂下属。
func (s *organizationService) DeleteNode(nodeID string, actorID uint, actorEmail string) error {
	if s.orgRepo == nil {
		return ErrInternal
	}
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return ErrInvalidInput
	}

	if err := s.orgRepo.Delete(nodeID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrNodeNotFound
		case errors.Is(err, repository.ErrNodeHasSubordinates):
			return ErrNodeHasSubordinates
		default:
			return err
		}
	}

	return s.recordAudit(model.AuditActionHierarchyDeleted, nodeID, actorID, actorEmail, nil)
}

func (s *organizationService) GetNode(nodeID string) (*model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil, ErrInvalidInput
	}

	node, err := s.orgRepo.FindByID(nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func (s *organizationService) GetNodeByUserID(userID uint) (*model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	node, err := s.orgRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

func (s *organizationService) GetSubordinates(nodeID string) ([]model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil, ErrInvalidInput
	}
	return s.orgRepo.FindBySupervisorID(nodeID)
}

func (s *organizationService) GetTree() ([]model.OrganizationNode, []*model.OrganizationTreeNode, error) {
	if s.orgRepo == nil {
		return nil, nil, ErrInternal
	}

	nodes, err := s.orgRepo.FindAll()
	if err != nil {
		return nil, nil, err
	}
	return nodes, model.BuildOrganizationTree(nodes), nil
}

// AssignSupervisor 把节点改挂到新上级下。
// 关键规则：
// 1. 不能把自己设为自己的上级。
// 2. 新上级必须存在。
// 3. 新上级不能是该节点的传递下属（通过遍历以该节点为根的子树判定），
//    否则会形成环，审批链就死循环了。
// 4. 成功后节点层级 = 新上级层级 + 1，所有传递下属深度优先级联重算。
func (s *organizationService) AssignSupervisor(nodeID, supervisorID string, actorID uint, actorEmail string) (*model.OrganizationNode, error) {
	if s.orgRepo == nil {
		return nil, ErrInternal
	}

	nodeID = strings.TrimSpace(nodeID)
	supervisorID = strings.TrimSpace(supervisorID)
	if nodeID == "" || supervisorID == "" {
		return nil, ErrInvalidInput
	}
	if nodeID == supervisorID {
		return nil, ErrSelfSupervisor
	}

	node, err := s.GetNode(nodeID)
	if err != nil {
		return nil, err
	}

	supervisor, err := s.orgRepo.FindByID(supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		return nil, err
	}

	isDescendant, err := s.isDescendant(supervisorID, nodeID)
	if err != nil {
		return nil, err
	}
	if isDescendant {
		return nil, ErrCycleDetected
	}

	newLevel := supervisor.Level + 1
	if err := s.orgRepo.ReassignSupervisor(nodeID, supervisorID, newLevel); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	node.SupervisorID = supervisorID
	node.Level = newLevel

	if err := s.recordAudit(model.AuditActionHierarchyUpdated, node.ID, actorID, actorEmail, map[string]interface{}{
		"supervisorId": supervisorID,
		"level":        newLevel,
	}); err != nil {
		return nil, err
	}
	return node, nil
}

// isDescendant 判断 candidateID 是否在以 rootID 为根的子树中（传递下属）。
// 逐层取直接下属递归下探，深度不设上限。
func (s *organizationService) isDescendant(candidateID, rootID string) (bool, error) {
	subs, err := s.orgRepo.FindBySupervisorID(rootID)
	if err != nil {
		return false, err
	}

	for _, sub := range subs {
		if sub.ID == candidateID {
			return true, nil
		}
		found, err := s.isDescendant(candidateID, sub.ID)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// recordAudit 写入层级变更审计。层级变更是合规关键路径，失败向上传播。
func (s *organizationService) recordAudit(action, entityID string, actorID uint, actorEmail string, details map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Record(action, model.AuditEntityOrganization, entityID, actorID, actorEmail, details); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
