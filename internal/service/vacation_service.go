package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VacationService 封装请假申请生命周期和年度余额台账（休假台账）。
// 核心不变量：每条余额在任何修改之后都满足 available = total - used - pending，
// 且 used、pending 永不为负。计数器算术集中在 model.VacationBalance 的方法里，
// 仓库层在行锁事务中调用它们。
//
// 审批人路由只在创建时解析一次：上级的用户 ID 和邮箱
// 盖章进申请记录，之后组织结构再怎么调整都不影响既有申请由谁审批。
type VacationService interface {
	CreateRequest(requester *model.User, startDate, endDate, vacationType, reason string) (*model.VacationRequest, error)
	// Approve / Reject 只能由创建时登记的上级执行，申请必须仍是 PENDING。
	Approve(requestID string, approver *model.User, comment string) (*model.VacationRequest, error)
	Reject(requestID string, approver *model.User, comment string) (*model.VacationRequest, error)
	// Cancel 只能由申请人本人执行，申请必须仍是 PENDING。
	Cancel(requestID string, requester *model.User) (*model.VacationRequest, error)

	GetRequest(requestID string) (*model.VacationRequest, error)
	ListMyRequests(requesterID uint) ([]model.VacationRequest, error)
	ListPendingApprovals(supervisorID uint) ([]model.VacationRequest, error)
	ListAllRequests() ([]model.VacationRequest, error)

	// SetBalance 管理员给 (用户, 当年) 设置总天数：不存在则创建，
	// 存在则重设并重算可用天数（不允许低于 used + pending）。
	SetBalance(userID uint, totalDays int, admin *model.User) (*model.VacationBalance, error)
	GetBalance(userID uint, year int) (*model.VacationBalance, error)
	ListBalances() ([]model.VacationBalance, error)
}

type vacationService struct {
	vacationRepo repository.VacationRepository
	orgRepo      repository.OrganizationRepository
	userRepo     repository.UserRepository
	audit        AuditService
	// now 可注入，测试时固定时间。
	now func() time.Time
}

func NewVacationService(vacationRepo repository.VacationRepository, orgRepo repository.OrganizationRepository, userRepo repository.UserRepository, audit AuditService) VacationService {
	return &vacationService{
		vacationRepo: vacationRepo,
		orgRepo:      orgRepo,
		userRepo:     userRepo,
		audit:        audit,
		now:          time.Now,
	}
}

// CreateRequest 创建请假申请。
// 流程：
// 1. 申请人必须在组织层级中，且有上级（根节点不能发起申请）。
// 2. 上级引用必须仍然有效（指向存在的节点）。
// 3. 天数 = 包含式日算（起止两端都算，单日申请记 1 天）。
// 4. 在行锁事务中校验当年可用余额并预留天数，同时落库 PENDING 申请。
// 5. 写入 REQUEST_CREATED 审计，失败向上传播（合规关键路径）。
func (s *vacationService) CreateRequest(requester *model.User, startDate, endDate, vacationType, reason string) (*model.VacationRequest, error) {
	if s.vacationRepo == nil || s.orgRepo == nil {
		return nil, ErrInternal
	}
	if requester == nil || requester.ID == 0 {
		return nil, ErrInvalidInput
	}

	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" || !model.IsValidVacationType(vacationType) {
		return nil, ErrInvalidInput
	}

	start, err := time.Parse(model.DateLayout, startDate)
	if err != nil {
		return nil, ErrInvalidInput
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return nil, ErrInvalidInput
	}

	node, err := s.orgRepo.FindByUserID(requester.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotInHierarchy
		}
		return nil, err
	}
	if node.IsRoot() {
		return nil, ErrNoSupervisor
	}

	supervisor, err := s.orgRepo.FindByID(node.SupervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		return nil, err
	}

	totalDays := model.InclusiveDays(start, end)
	year := s.now().Year()

	request := &model.VacationRequest{
		ID:              uuid.NewString(),
		RequesterID:     requester.ID,
		RequesterEmail:  requester.Email,
		RequesterName:   requester.FullName,
		SupervisorID:    supervisor.UserID,
		SupervisorEmail: supervisor.UserEmail,
		StartDate:       startDate,
		EndDate:         endDate,
		TotalDays:       totalDays,
		Type:            vacationType,
		Reason:          strings.TrimSpace(reason),
		Status:          model.VacationStatusPending,
	}

	if err := s.vacationRepo.CreateRequestReservingDays(request, year); err != nil {
		switch {
		case errors.Is(err, repository.ErrBalanceNotFound):
			return nil, ErrNoBalanceAssigned
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		default:
			return nil, err
		}
	}

	if err := s.recordAudit(model.AuditActionRequestCreated, request.ID, requester.ID, requester.Email, map[string]interface{}{
		"type":      vacationType,
		"totalDays": totalDays,
		"startDate": startDate,
		"endDate":   endDate,
	}); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *vacationService) Approve(requestID string, approver *model.User, comment string) (*model.VacationRequest, error) {
	return s.resolve(requestID, model.VacationStatusApproved, approver, comment)
}

func (s *vacationService) Reject(requestID string, approver *model.User, comment string) (*model.VacationRequest, error) {
	return s.resolve(requestID, model.VacationStatusRejected, approver, comment)
}

// resolve 审批终局。
// 检查顺序：申请存在 -> 仍是 PENDING -> 审批人是创建时登记的上级。
// 上级比对用的是盖章值，不回查当前组织结构：后来的组织调整
// 不追溯改变既有申请的审批人。
func (s *vacationService) resolve(requestID, status string, approver *model.User, comment string) (*model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	if approver == nil || approver.ID == 0 {
		return nil, ErrInvalidInput
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, ErrInvalidInput
	}

	request, err := s.vacationRepo.FindRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.Status != model.VacationStatusPending {
		return nil, ErrRequestNotPending
	}
	if request.SupervisorID != approver.ID {
		return nil, ErrNotRequestSupervisor
	}

	resolved, err := s.vacationRepo.ResolveRequest(requestID, status, strings.TrimSpace(comment), s.now())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrRequestNotFound
		case errors.Is(err, repository.ErrRequestNotPending):
			return nil, ErrRequestNotPending
		case errors.Is(err, repository.ErrBalanceNotFound):
			return nil, ErrNoBalanceAssigned
		default:
			return nil, err
		}
	}

	action := model.AuditActionRequestApproved
	if status == model.VacationStatusRejected {
		action = model.AuditActionRequestRejected
	}
	if err := s.recordAudit(action, requestID, approver.ID, approver.Email, map[string]interface{}{
		"requesterId": resolved.RequesterID,
		"comment":     comment,
	}); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Cancel 申请人撤销自己的申请。
// 检查顺序：申请存在 -> 是本人的申请 -> 仍是 PENDING。
// 预留天数走与驳回相同的退回路径。
func (s *vacationService) Cancel(requestID string, requester *model.User) (*model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	if requester == nil || requester.ID == 0 {
		return nil, ErrInvalidInput
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, ErrInvalidInput
	}

	request, err := s.vacationRepo.FindRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.RequesterID != requester.ID {
		return nil, ErrNotRequestOwner
	}
	if request.Status != model.VacationStatusPending {
		return nil, ErrRequestNotPending
	}

	cancelled, err := s.vacationRepo.CancelRequest(requestID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrRequestNotFound
		case errors.Is(err, repository.ErrRequestNotPending):
			return nil, ErrRequestNotPending
		case errors.Is(err, repository.ErrBalanceNotFound):
			return nil, ErrNoBalanceAssigned
		default:
			return nil, err
		}
	}

	if err := s.recordAudit(model.AuditActionRequestCancelled, requestID, requester.ID, requester.Email, nil); err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *vacationService) GetRequest(requestID string) (*model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, ErrInvalidInput
	}

	request, err := s.vacationRepo.FindRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (s *vacationService) ListMyRequests(requesterID uint) ([]model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	if requesterID == 0 {
		return nil, ErrInvalidInput
	}
	return s.vacationRepo.FindByRequester(requesterID)
}

func (s *vacationService) ListPendingApprovals(supervisorID uint) ([]model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	if supervisorID == 0 {
		return nil, ErrInvalidInput
	}
	return s.vacationRepo.FindPendingBySupervisor(supervisorID)
}

func (s *vacationService) ListAllRequests() ([]model.VacationRequest, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	return s.vacationRepo.FindAllRequests()
}

// SetBalance 管理员设置年度余额。
// 不存在则懒创建（available = total，used = pending = 0），
// 存在则重设总数并重算：总数低于 used + pending 报 ErrInvalidAdjustment。
func (s *vacationService) SetBalance(userID uint, totalDays int, admin *model.User) (*model.VacationBalance, error) {
	if s.vacationRepo == nil || s.userRepo == nil {
		return nil, ErrInternal
	}
	if admin == nil || admin.ID == 0 {
		return nil, ErrInvalidInput
	}
	if userID == 0 || totalDays < 0 {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	year := s.now().Year()
	adminIDStr := fmt.Sprintf("%d", admin.ID)

	_, err = s.vacationRepo.FindBalance(userID, year)
	if err != nil {
		if !errors.Is(err, repository.ErrBalanceNotFound) {
			return nil, err
		}

		balance := &model.VacationBalance{
			UserID:        userID,
			UserEmail:     user.Email,
			UserName:      user.FullName,
			TotalDays:     totalDays,
			UsedDays:      0,
			PendingDays:   0,
			AvailableDays: totalDays,
			Year:          year,
			UpdatedBy:     adminIDStr,
		}
		if err := s.vacationRepo.CreateBalance(balance); err != nil {
			return nil, err
		}

		if err := s.recordBalanceAudit(model.AuditActionBalanceCreated, balance, admin, totalDays); err != nil {
			return nil, err
		}
		return balance, nil
	}

	updated, err := s.vacationRepo.UpdateBalanceTotal(userID, year, totalDays, adminIDStr)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrBalanceExceeded):
			return nil, ErrInvalidAdjustment
		case errors.Is(err, repository.ErrBalanceNotFound):
			return nil, ErrBalanceNotFound
		default:
			return nil, err
		}
	}

	if err := s.recordBalanceAudit(model.AuditActionBalanceUpdated, updated, admin, totalDays); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *vacationService) GetBalance(userID uint, year int) (*model.VacationBalance, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	if year == 0 {
		year = s.now().Year()
	}

	balance, err := s.vacationRepo.FindBalance(userID, year)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return balance, nil
}

func (s *vacationService) ListBalances() ([]model.VacationBalance, error) {
	if s.vacationRepo == nil {
		return nil, ErrInternal
	}
	return s.vacationRepo.FindAllBalances()
}

// recordAudit 写入申请相关审计。请假流转是合规关键路径，失败向上传播。
func (s *vacationService) recordAudit(action, entityID string, actorID uint, actorEmail string, details map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Record(action, model.AuditEntityVacationRequest, entityID, actorID, actorEmail, details); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *vacationService) recordBalanceAudit(action string, balance *model.VacationBalance, admin *model.User, totalDays int) error {
	if s.audit == nil {
		return nil
	}
	entityID := fmt.Sprintf("%d-%d", balance.UserID, balance.Year)
	err := s.audit.Record(action, model.AuditEntityVacationBalance, entityID, admin.ID, admin.Email, map[string]interface{}{
		"totalDays": totalDays,
		"year":      balance.Year,
	})
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
