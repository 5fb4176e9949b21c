package model

import "time"

// RootSupervisor 是"没有上级"的哨兵值。
// 根节点的 SupervisorID 存 "ROOT" 而不是 NULL，方便按 supervisor_id 建索引查询。
const RootSupervisor = "ROOT"

// OrganizationNode 对应数据库中 organization_nodes 表，每个入编员工一条记录。
// 节点 ID 与用户 ID 是两个不同的标识：ID 是节点自身的主键（uuid），
// UserID 指向 users 表，UserEmail/UserName 冗余存储用于展示和审批路由。
type OrganizationNode struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex" json:"userId"`
	UserEmail    string    `gorm:"type:varchar(255);not null" json:"userEmail"`
	UserName     string    `gorm:"type:varchar(255);not null" json:"userName"`
	SupervisorID string    `gorm:"type:varchar(64);not null;index" json:"supervisorId"`
	Position     string    `gorm:"type:varchar(255);not null" json:"position"`
	Department   string    `gorm:"type:varchar(255);not null" json:"department"`
	Level        int       `gorm:"not null;default:0" json:"level"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (OrganizationNode) TableName() string {
	return "organization_nodes"
}

// IsRoot 判断节点是否为根节点（没有上级）。
func (n *OrganizationNode) IsRoot() bool {
	return n.SupervisorID == RootSupervisor
}

// OrganizationTreeNode 是组织节点的树形表示，用于构建前端需要的嵌套结构响应。
// 与 OrganizationNode（数据库模型）的区别是增加了 Children 字段。
type OrganizationTreeNode struct {
	OrganizationNode
	Children []*OrganizationTreeNode `json:"children"`
}

// BuildOrganizationTree 把平铺的节点列表组装成森林。
// 实现采用两遍扫描：
// 1. 第一遍创建所有树节点并放入 map（id -> node）
// 2. 第二遍按 supervisor 关系把子节点挂到父节点上
//
// 上级引用为 ROOT、或指向一个已不存在节点的"孤儿"节点，统一作为根返回，
// 避免节点丢失。悬挂引用不报错而是静默提升为根，这是刻意保留的策略。
func BuildOrganizationTree(nodes []OrganizationNode) []*OrganizationTreeNode {
	treeNodes := make(map[string]*OrganizationTreeNode, len(nodes))
	for _, n := range nodes {
		treeNodes[n.ID] = &OrganizationTreeNode{
			OrganizationNode: n,
			Children:         []*OrganizationTreeNode{},
		}
	}

	roots := make([]*OrganizationTreeNode, 0)
	for _, n := range nodes {
		node := treeNodes[n.ID]
		if n.SupervisorID != "" && n.SupervisorID != RootSupervisor {
			if parent, ok := treeNodes[n.SupervisorID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
