package handler

import (
	"net/http"

	"hr_vacation_go/internal/service"

	"github.com/gin-gonic/gin"
)

// AuditHandler 负责审计日志查询接口（管理员路由）。
type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List 按动作和实体类型过滤审计日志，query 参数留空表示不过滤。
func (h *AuditHandler) List(c *gin.Context) {
	action := c.Query("action")
	entityType := c.Query("entityType")

	logs, err := h.auditService.List(action, entityType)
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
		"message": "Audit logs retrieved successfully",
		"data":    logs,
	})
}
