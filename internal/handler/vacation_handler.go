package handler

import (
	"net/http"
	"strconv"

	"hr_vacation_go/internal/service"
	"hr_vacation_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// VacationHandler 负责请假申请与年度余额接口。
// 普通用户路由（申请、撤销、查自己的）和管理员路由（全量查询、设置余额）
// 共用同一个 Handler，权限由路由组挂载的中间件决定。
type VacationHandler struct {
	vacationService service.VacationService
}

func NewVacationHandler(vacationService service.VacationService) *VacationHandler {
	return &VacationHandler{vacationService: vacationService}
}

// CreateVacationRequest 是创建请假申请的请求体。
// 日期格式 YYYY-MM-DD，起止两端都计入天数。
type CreateVacationRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Reason    string `json:"reason"`
}

// DecideRequest 是审批（批准/驳回）的请求体。
type DecideRequest struct {
	Comment string `json:"comment"`
}

// SetBalanceRequest 是管理员设置年度余额的请求体。
type SetBalanceRequest struct {
	TotalDays *int `json:"totalDays" binding:"required"`
}

// Create 创建请假申请。申请人取自认证上下文，
// 审批人由组织层级在此刻解析并盖章进申请记录。
func (h *VacationHandler) Create(c *gin.Context) {
	var req CreateVacationRequest
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

	request, err := h.vacationService.CreateRequest(user, req.StartDate, req.EndDate, req.Type, req.Reason)
	if err != nil {
		log.Warnf("VacationHandler.Create: failed to create request for user %d: %v", user.ID, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Request created successfully",
		"data":    request,
	})
}

// Approve 批准申请（仅创建时登记的上级）。
func (h *VacationHandler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// Reject 驳回申请（仅创建时登记的上级）。
func (h *VacationHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *VacationHandler) decide(c *gin.Context, approve bool) {
	requestID := c.Param("id")

	var req DecideRequest
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

	var err error
	var message string
	var request interface{}
	if approve {
		request, err = h.vacationService.Approve(requestID, user, req.Comment)
		message = "Request approved successfully"
	} else {
		request, err = h.vacationService.Reject(requestID, user, req.Comment)
		message = "Request rejected successfully"
	}
	if err != nil {
		log.Warnf("VacationHandler.decide: failed to resolve request %s: %v", requestID, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    request,
	})
}

// Cancel 申请人撤销自己的 PENDING 申请。
func (h *VacationHandler) Cancel(c *gin.Context) {
	requestID := c.Param("id")

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	request, err := h.vacationService.Cancel(requestID, user)
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
		"message": "Request cancelled successfully",
		"data":    request,
	})
}

// Get 按 ID 查询单条申请。
func (h *VacationHandler) Get(c *gin.Context) {
	request, err := h.vacationService.GetRequest(c.Param("id"))
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
		"message": "Request retrieved successfully",
		"data":    request,
	})
}

// ListMine 返回当前用户的申请（最新在前）。
func (h *VacationHandler) ListMine(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	requests, err := h.vacationService.ListMyRequests(user.ID)
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
		"message": "Requests retrieved successfully",
		"data":    requests,
	})
}

// ListPendingApprovals 返回待当前用户审批的申请（最早在前，先到先审）。
func (h *VacationHandler) ListPendingApprovals(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	requests, err := h.vacationService.ListPendingApprovals(user.ID)
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
		"message": "Pending approvals retrieved successfully",
		"data":    requests,
	})
}

// ListAll 返回全部申请（管理员，最新在前）。
func (h *VacationHandler) ListAll(c *gin.Context) {
	requests, err := h.vacationService.ListAllRequests()
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
		"message": "Requests retrieved successfully",
		"data":    requests,
	})
}

// GetMyBalance 返回当前用户当年的余额。
func (h *VacationHandler) GetMyBalance(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "Invalid year",
			})
			return
		}
		year = parsed
	}

	balance, err := h.vacationService.GetBalance(user.ID, year)
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
		"message": "Balance retrieved successfully",
		"data":    balance,
	})
}

// SetBalance 管理员设置某用户当年的总天数。
func (h *VacationHandler) SetBalance(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid user id",
		})
		return
	}

	var req SetBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalDays == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	admin, ok := getUserFromContext(c)
	if !ok {
		return
	}

	balance, err := h.vacationService.SetBalance(uint(userID), *req.TotalDays, admin)
	if err != nil {
		log.Warnf("VacationHandler.SetBalance: failed for user %d: %v", userID, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Balance saved successfully",
		"data":    balance,
	})
}

// ListBalances 返回全部余额（管理员）。
func (h *VacationHandler) ListBalances(c *gin.Context) {
	balances, err := h.vacationService.ListBalances()
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
		"message": "Balances retrieved successfully",
		"data":    balances,
	})
}
