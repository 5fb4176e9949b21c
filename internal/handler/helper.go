package handler

import (
	"errors"
	"net/http"
	"strings"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/service"

	"github.com/gin-gonic/gin"
)

// mapServiceError 把 Service 层哨兵错误转换为 HTTP 状态码和对外消息。
// 统一映射的价值：
// 1. Handler 不必散落大量 if/else 判断。
// 2. 对外返回口径稳定：消息文本是唯一的错误区分手段（没有结构化错误码），
//    所以这里的字符串是对外契约，改动等同于改接口。
// 业务规则冲突（余额不足、环、有下属等）按约定返回 400 而不是 409。
func mapServiceError(err error) (httpStatus int, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request parameters"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"

	case errors.Is(err, service.ErrNodeNotFound):
		return http.StatusNotFound, "Node not found"
	case errors.Is(err, service.ErrSupervisorNotFound):
		return http.StatusNotFound, "Supervisor not found"
	case errors.Is(err, service.ErrNodeAlreadyExists):
		return http.StatusBadRequest, "User already has an organization node"
	case errors.Is(err, service.ErrNodeHasSubordinates):
		return http.StatusBadRequest, "Cannot delete node with subordinates. Reassign them first."
	case errors.Is(err, service.ErrSelfSupervisor):
		return http.StatusBadRequest, "Cannot assign self as supervisor"
	case errors.Is(err, service.ErrCycleDetected):
		return http.StatusBadRequest, "Cannot create circular hierarchy"

	case errors.Is(err, service.ErrNotInHierarchy):
		return http.StatusBadRequest, "User is not part of the organization hierarchy. Contact your administrator."
	case errors.Is(err, service.ErrNoSupervisor):
		return http.StatusBadRequest, "User does not have a supervisor assigned. Contact your administrator."
	case errors.Is(err, service.ErrRequestNotFound):
		return http.StatusNotFound, "Request not found"
	case errors.Is(err, service.ErrRequestNotPending):
		return http.StatusBadRequest, "Request is not pending"
	case errors.Is(err, service.ErrNotRequestSupervisor):
		return http.StatusForbidden, "You are not authorized to approve/reject this request"
	case errors.Is(err, service.ErrNotRequestOwner):
		return http.StatusForbidden, "You can only cancel your own requests"
	case errors.Is(err, service.ErrNoBalanceAssigned):
		return http.StatusBadRequest, "No vacation balance assigned. Contact your administrator."
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest, "Insufficient vacation balance"
	case errors.Is(err, service.ErrBalanceNotFound):
		return http.StatusNotFound, "Balance not found"
	case errors.Is(err, service.ErrInvalidAdjustment):
		return http.StatusBadRequest, "Total days cannot be lower than used plus pending days"

	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// extractBearerToken 从 Authorization 请求头提取 Bearer Token。
// 期望格式：Authorization: Bearer <token>
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}

// getUserFromContext 从 Gin 上下文中读取 AuthMiddleware 注入的用户对象。
// 如果上下文异常，该函数会直接写错误响应并返回 false，调用方只需 `if !ok { return }`。
func getUserFromContext(c *gin.Context) (*model.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "User not found in context",
		})
		return nil, false
	}

	user, ok := userVal.(*model.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to get user profile",
		})
		return nil, false
	}
	return user, true
}
