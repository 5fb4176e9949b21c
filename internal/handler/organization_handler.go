package handler

import (
	"net/http"
	"strconv"

	"hr_vacation_go/internal/service"
	"hr_vacation_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// OrganizationHandler 负责组织层级管理接口（管理员路由，树查询除外）。
type OrganizationHandler struct {
	orgService service.OrganizationService
}

func NewOrganizationHandler(orgService service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateNodeRequest 是创建组织节点的请求体。
// supervisorId 留空表示创建根节点（没有上级）。
type CreateNodeRequest struct {
	UserID       uint   `json:"userId" binding:"required"`
	UserEmail    string `json:"userEmail" binding:"required"`
	UserName     string `json:"userName" binding:"required"`
	Position     string `json:"position" binding:"required"`
	Department   string `json:"department" binding:"required"`
	SupervisorID string `json:"supervisorId"`
}

// UpdateNodeRequest 是更新节点职位/部门的请求体。
type UpdateNodeRequest struct {
	Position   string `json:"position" binding:"required"`
	Department string `json:"department" binding:"required"`
}

// AssignSupervisorRequest 是改挂上级的请求体。
type AssignSupervisorRequest struct {
	SupervisorID string `json:"supervisorId" binding:"required"`
}

// CreateNode 创建组织节点。
func (h *OrganizationHandler) CreateNode(c *gin.Context) {
	var req CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	node, err := h.orgService.CreateNode(req.UserID, req.UserEmail, req.UserName, req.Position, req.Department, req.SupervisorID, user.ID, user.Email)
	if err != nil {
		log.Warnf("OrganizationHandler.CreateNode: failed to create node: %v", err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Node created successfully",
		"data":    node,
	})
}

// UpdateNode 更新节点的职位和部门。
func (h *OrganizationHandler) UpdateNode(c *gin.Context) {
	nodeID := c.Param("id")

	var req UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	node, err := h.orgService.UpdateNode(nodeID, req.Position, req.Department, user.ID, user.Email)
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Node updated successfully",
		"data":    node,
	})
}

// DeleteNode 删除组织节点。有直接下属时拒绝，需要先改挂下属。
func (h *OrganizationHandler) DeleteNode(c *gin.Context) {
	nodeID := c.Param("id")

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	if err := h.orgService.DeleteNode(nodeID, user.ID, user.Email); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Node deleted successfully",
	})
}

// GetNode 按节点 ID 查询。
func (h *OrganizationHandler) GetNode(c *gin.Context) {
	node, err := h.orgService.GetNode(c.Param("id"))
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Node retrieved successfully",
		"data":    node,
	})
}

// GetNodeByUserID 按用户 ID 查节点。
func (h *OrganizationHandler) GetNodeByUserID(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid user id",
		})
		return
	}

	node, err := h.orgService.GetNodeByUserID(uint(userID))
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Node retrieved successfully",
		"data":    node,
	})
}

// GetSubordinates 返回节点的直接下属列表。
func (h *OrganizationHandler) GetSubordinates(c *gin.Context) {
	subordinates, err := h.orgService.GetSubordinates(c.Param("id"))
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Subordinates retrieved successfully",
		"data":    subordinates,
	})
}

// GetTree 返回平铺节点列表和嵌套的组织森林。
func (h *OrganizationHandler) GetTree(c *gin.Context) {
	nodes, tree, err := h.orgService.GetTree()
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Organization tree retrieved successfully",
		"data": gin.H{
			"nodes": nodes,
			"tree":  tree,
		},
	})
}

// AssignSupervisor 把节点改挂到新上级下，成功后层级级联重算。
func (h *OrganizationHandler) AssignSupervisor(c *gin.Context) {
	nodeID := c.Param("id")

	var req AssignSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	node, err := h.orgService.AssignSupervisor(nodeID, req.SupervisorID, user.ID, user.Email)
	if err != nil {
		log.Warnf("OrganizationHandler.AssignSupervisor: failed for node %s: %v", nodeID, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Supervisor assigned successfully",
		"data":    node,
	})
}
