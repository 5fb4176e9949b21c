package repository

import (
	"errors"
	"fmt"
	"hr_vacation_go/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrNodeHasSubordinates 表示节点下仍有直接下属，禁止直接删除。
	ErrNodeHasSubordinates = errors.New("organization node has subordinates")
)

// OrganizationRepository 定义组织节点的持久化操作接口。
// 组织结构是森林：每个节点通过 SupervisorID 指向上级，根节点存 ROOT 哨兵值。
type OrganizationRepository interface {
	Create(node *model.OrganizationNode) error
	FindByID(id string) (*model.OrganizationNode, error)
	// FindByUserID 按用户 ID 查节点。user_id 上有唯一索引，
	// 是 O(log n) 的索引查找而不是全表扫描。
	FindByUserID(userID uint) (*model.OrganizationNode, error)
	// FindBySupervisorID 返回直接下属（只有一层，不含传递下属）。
	FindBySupervisorID(supervisorID string) ([]model.OrganizationNode, error)
	FindAll() ([]model.OrganizationNode, error)
	// Update 更新 position、department、updated_at 三个字段。
	Update(node *model.OrganizationNode) error

	// Delete 保护删除：有直接下属则返回 ErrNodeHasSubordinates。
	// 使用事务保证"检查下属 + 删除"的原子性。
	Delete(nodeID string) error

	// ReassignSupervisor 在一个事务中改挂节点的上级并级联重算层级：
	// 节点层级设为 newLevel，其所有传递下属按"父层级 + 1"深度优先逐层重算。
	// 环检测由调用方在事务外完成（只读遍历），这里只负责写入。
	ReassignSupervisor(nodeID, newSupervisorID string, newLevel int) error
}

// organizationRepository 组织节点仓库实现
type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(node *model.OrganizationNode) error {
	if node == nil {
		return fmt.Errorf("node is nil")
	}
	if node.ID == "" {
		return fmt.Errorf("node id is required")
	}
	return r.db.Create(node).Error
}

func (r *organizationRepository) FindByID(id string) (*model.OrganizationNode, error) {
	if id == "" {
		return nil, fmt.Errorf("node id is required")
	}

	var node model.OrganizationNode
	if err := r.db.Where("id = ?", id).First(&node).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *organizationRepository) FindByUserID(userID uint) (*model.OrganizationNode, error) {
	var node model.OrganizationNode
	if err := r.db.Where("user_id = ?", userID).First(&node).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *organizationRepository) FindBySupervisorID(supervisorID string) ([]model.OrganizationNode, error) {
	if supervisorID == "" {
		return nil, fmt.Errorf("supervisor id is required")
	}

	var nodes []model.OrganizationNode
	if err := r.db.Where("supervisor_id = ?", supervisorID).
		Order("id ASC").
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *organizationRepository) FindAll() ([]model.OrganizationNode, error) {
	var nodes []model.OrganizationNode
	if err := r.db.Order("level ASC, id ASC").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// Update 更新节点的 position、department 字段。
// 使用 Select 限定只更新这两个字段，避免零值覆盖其他字段。
// 如果 ID 不存在，返回 gorm.ErrRecordNotFound。
func (r *organizationRepository) Update(node *model.OrganizationNode) error {
	if node == nil {
		return fmt.Errorf("organization node is nil")
	}
	if node.ID == "" {
		return fmt.Errorf("node id is required")
	}

	tx := r.db.Model(&model.OrganizationNode{}).
		Where("id = ?", node.ID).
		Select("position", "department").
		Updates(node)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 保护删除：在事务中先确认记录存在、再检查是否有直接下属、最后执行删除。
// 有下属时返回 ErrNodeHasSubordinates，调用方可据此提示先改挂下属。
func (r *organizationRepository) Delete(nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("node id is required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var current model.OrganizationNode
		if err := tx.Where("id = ?", nodeID).First(&current).Error; err != nil {
			return err
		}

		var subCount int64
		if err := tx.Model(&model.OrganizationNode{}).
			Where("supervisor_id = ?", nodeID).
			Count(&subCount).Error; err != nil {
			return err
		}
		if subCount > 0 {
			return ErrNodeHasSubordinates
		}

		res := tx.Where("id = ?", nodeID).Delete(&model.OrganizationNode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ReassignSupervisor 写入新的上级和层级，并在同一事务内深度优先级联
// 重算所有传递下属的层级（每层 = 父层级 + 1），深度不设上限。
func (r *organizationRepository) ReassignSupervisor(nodeID, newSupervisorID string, newLevel int) error {
	if nodeID == "" || newSupervisorID == "" {
		return fmt.Errorf("node id and supervisor id are required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OrganizationNode{}).
			Where("id = ?", nodeID).
			Updates(map[string]interface{}{
				"supervisor_id": newSupervisorID,
				"level":         newLevel,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return cascadeLevels(tx, nodeID, newLevel)
	})
}

// cascadeLevels 把 parentID 的直接下属层级设为 parentLevel+1，然后递归处理下一层。
func cascadeLevels(tx *gorm.DB, parentID string, parentLevel int) error {
	var subs []model.OrganizationNode
	if err := tx.Where("supervisor_id = ?", parentID).Find(&subs).Error; err != nil {
		return err
	}

	for _, sub := range subs {
		if err := tx.Model(&model.OrganizationNode{}).
			Where("id = ?", sub.ID).
			Update("level", parentLevel+1).Error; err != nil {
			return err
		}
		if err := cascadeLevels(tx, sub.ID, parentLevel+1); err != nil {
			return err
		}
	}
	return nil
}
